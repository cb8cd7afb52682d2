// Package dataset turns touched functions into paired defective/clean rows
// and reads those rows back.
package dataset

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agusespa/bugharvest/internal/locator"
	"github.com/agusespa/bugharvest/internal/types"
	"github.com/agusespa/bugharvest/internal/utils"
	"go.uber.org/zap"
)

// UnknownFunctionName stands in for a function whose identifier could not be
// recovered from its hunk header.
const UnknownFunctionName = "Error_func_name"

// LineFetcher returns the lines of the document at url, newlines kept.
type LineFetcher interface {
	GetLines(ctx context.Context, url string) ([]string, error)
}

type Options struct {
	Delimiter     string // field separator, e.g. "<CODESPLIT>"
	CommentMarker string // lines containing it are left out of the code
	RawBaseURL    string // e.g. "https://github.com"
}

type Emitter struct {
	fetcher LineFetcher
	locator locator.Locator
	opts    Options
	logger  *zap.Logger
}

func NewEmitter(fetcher LineFetcher, loc locator.Locator, opts Options, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.RawBaseURL = strings.TrimRight(opts.RawBaseURL, "/")
	return &Emitter{
		fetcher: fetcher,
		locator: loc,
		opts:    opts,
		logger:  logger,
	}
}

type revisionFile struct {
	defectiveURL   string
	cleanURL       string
	defectiveLines []string
	cleanLines     []string
}

// Emit writes a defective/clean row pair to sink for every touched function
// whose body changed, and returns how many files were fetched and how many
// pairs were written. A fetch failure stops the pull request and is returned.
func (e *Emitter) Emit(ctx context.Context, symbols []types.TouchedSymbol, rev types.Revision, sink io.Writer) (int, int, error) {
	var (
		current   *revisionFile
		files     int
		functions int
	)

	for _, symbol := range symbols {
		if symbol.IsFile {
			file, err := e.fetchRevisions(ctx, rev, symbol.Name)
			if err != nil {
				return files, functions, err
			}
			current = file
			files++
			continue
		}

		if current == nil {
			e.logger.Warn("function marker without a file", zap.String("marker", symbol.Name))
			continue
		}

		functionName, err := FunctionIdentifier(symbol.Name)
		if err != nil {
			e.logger.Warn("could not extract function name", zap.Error(err))
			functionName = UnknownFunctionName
		}

		written, err := e.emitFunction(current, functionName, rev.Title, sink)
		if err != nil {
			return files, functions, err
		}
		if written {
			functions++
		}
	}

	return files, functions, nil
}

func (e *Emitter) fetchRevisions(ctx context.Context, rev types.Revision, filename string) (*revisionFile, error) {
	file := &revisionFile{
		defectiveURL: e.RawFileURL(rev.Owner, rev.Repo, rev.DefectiveSHA, filename),
		cleanURL:     e.RawFileURL(rev.Owner, rev.Repo, rev.CleanSHA, filename),
	}

	var err error
	if file.defectiveLines, err = e.fetcher.GetLines(ctx, file.defectiveURL); err != nil {
		return nil, fmt.Errorf("failed to fetch defective revision of %s: %w", filename, err)
	}
	if file.cleanLines, err = e.fetcher.GetLines(ctx, file.cleanURL); err != nil {
		return nil, fmt.Errorf("failed to fetch clean revision of %s: %w", filename, err)
	}
	return file, nil
}

func (e *Emitter) emitFunction(file *revisionFile, functionName, title string, sink io.Writer) (bool, error) {
	defSpan := e.locator.Locate(file.defectiveLines, functionName)
	clnSpan := e.locator.Locate(file.cleanLines, functionName)

	if !defSpan.Valid() || !clnSpan.Valid() {
		err := &types.ExtractionError{
			Function: functionName,
			Reason:   fmt.Sprintf("no span, defective %s clean %s", defSpan, clnSpan),
		}
		e.logger.Warn("skipping function",
			zap.String("defective_url", file.defectiveURL),
			zap.String("clean_url", file.cleanURL),
			zap.Error(err))
		return false, nil
	}

	defectiveCode := e.stripComments(file.defectiveLines[defSpan.Start : defSpan.End+1])
	cleanCode := e.stripComments(file.cleanLines[clnSpan.Start : clnSpan.End+1])
	if defectiveCode == cleanCode {
		return false, nil
	}

	defective := types.DatasetRow{
		Label:        types.LabelDefective,
		SourceURL:    file.defectiveURL,
		FunctionName: functionName,
		PullTitle:    title,
		Code:         defectiveCode,
	}
	clean := types.DatasetRow{
		Label:        types.LabelClean,
		SourceURL:    file.cleanURL,
		FunctionName: functionName,
		PullTitle:    title,
		Code:         cleanCode,
	}

	// one write so a pair is never split
	pair := defective.Format(e.opts.Delimiter) + "\n" + clean.Format(e.opts.Delimiter) + "\n"
	if _, err := io.WriteString(sink, pair); err != nil {
		return false, fmt.Errorf("failed to write rows for %s: %w", functionName, err)
	}
	return true, nil
}

func (e *Emitter) stripComments(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		if strings.Contains(line, e.opts.CommentMarker) {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// RawFileURL builds the raw-content URL of path at sha, with the path's
// separators escaped.
func (e *Emitter) RawFileURL(owner, repo, sha, path string) string {
	return fmt.Sprintf("%s/%s/%s/raw/%s/%s", e.opts.RawBaseURL, owner, repo, sha, utils.EscapePath(path))
}

// FunctionIdentifier extracts the bare name from a hunk-header function
// marker. It handles "func Name(...)" and "func (recv T) Name(...)".
func FunctionIdentifier(marker string) (string, error) {
	fields := strings.Fields(marker)
	if len(fields) < 2 || fields[1] == "" {
		return "", &types.ExtractionError{Function: marker, Reason: "no name after keyword"}
	}

	token := fields[1]
	if strings.HasPrefix(token, "(") {
		next := receiverEnd(fields) + 1
		if next == 0 || next >= len(fields) {
			return "", &types.ExtractionError{Function: marker, Reason: "no name after receiver"}
		}
		token = fields[next]
	}

	name, _, _ := strings.Cut(token, "(")
	if name == "" {
		return "", &types.ExtractionError{Function: marker, Reason: "empty name"}
	}
	if first, _ := utf8.DecodeRuneInString(name); first != '_' && !unicode.IsLetter(first) {
		return "", &types.ExtractionError{Function: marker, Reason: fmt.Sprintf("%q is not an identifier", name)}
	}
	return name, nil
}

// receiverEnd returns the index of the field closing the receiver list, or -1.
func receiverEnd(fields []string) int {
	for i := 1; i < len(fields); i++ {
		if strings.Contains(fields[i], ")") {
			return i
		}
	}
	return -1
}
