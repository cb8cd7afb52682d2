package utils

import (
	"strings"

	"github.com/agusespa/bugharvest/internal/types"
	"github.com/sourcegraph/go-diff/diff"
	"go.uber.org/zap"
)

const (
	fileHeaderPrefix = "diff"
	hunkHeaderPrefix = "@@"
)

type ScanOptions struct {
	Extension       string // target file extension without the dot, e.g. "go"
	FunctionKeyword string // e.g. "func"
}

type fileMarker struct {
	filename string
	emitted  bool
}

// ScanTouchedSymbols walks a unified diff and returns every target-type file
// that has at least one function-context hunk, each followed by the function
// markers of its hunks in order.
func ScanTouchedSymbols(lines []string, opts ScanOptions, logger *zap.Logger) []types.TouchedSymbol {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		result  []types.TouchedSymbol
		current *fileMarker
	)

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")

		if strings.HasPrefix(line, fileHeaderPrefix) {
			filename, err := ParseFileHeader(line)
			if err != nil {
				logger.Warn("skipping diff line", zap.Error(err))
				continue
			}
			if FileExtension(filename) == opts.Extension {
				current = &fileMarker{filename: filename}
			} else {
				current = nil
			}
			continue
		}

		functionName, ok := ParseHunkFunction(line, opts.FunctionKeyword)
		if !ok || current == nil {
			continue
		}

		if !current.emitted {
			result = append(result, types.TouchedSymbol{Name: current.filename, IsFile: true})
			current.emitted = true
		}

		if err := appendFunction(&result, functionName); err != nil {
			logger.Warn("skipping diff line", zap.Error(err))
		}
	}

	return result
}

func appendFunction(result *[]types.TouchedSymbol, functionName string) error {
	if len(*result) == 0 {
		return &types.ScanError{Line: functionName, Reason: "function marker without a file entry"}
	}
	last := (*result)[len(*result)-1]
	if strings.TrimSpace(last.Name) == strings.TrimSpace(functionName) {
		return nil
	}
	*result = append(*result, types.TouchedSymbol{Name: functionName})
	return nil
}

// ParseFileHeader extracts the path from a "diff --git a/path b/path" line.
func ParseFileHeader(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", &types.ScanError{Line: line, Reason: "file header has no path"}
	}
	path := fields[2]
	if len(path) < 3 {
		return "", &types.ScanError{Line: line, Reason: "file header path too short"}
	}
	return path[2:], nil
}

// ParseHunkFunction returns the function signature a hunk header carries as
// trailing context, e.g. "func Bar(x int) {" for
// "@@ -1,3 +1,4 @@ func Bar(x int) {".
func ParseHunkFunction(line, keyword string) (string, bool) {
	if !strings.HasPrefix(line, hunkHeaderPrefix) {
		return "", false
	}
	parts := strings.Split(line, hunkHeaderPrefix)
	context := parts[len(parts)-1]
	if !strings.HasPrefix(context, " "+keyword+" ") {
		return "", false
	}
	return context[1:], true
}

// CountModifiedFiles counts the files of the given extension a diff touches.
func CountModifiedFiles(diffText, extension string) int {
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return countFileHeaders(diffText, extension)
	}

	count := 0
	for _, fd := range fileDiffs {
		if FileExtension(diffFileName(fd)) == extension {
			count++
		}
	}
	return count
}

func diffFileName(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	if len(name) > 2 && (strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/")) {
		name = name[2:]
	}
	return name
}

func countFileHeaders(diffText, extension string) int {
	count := 0
	for line := range strings.SplitSeq(diffText, "\n") {
		if !strings.HasPrefix(line, fileHeaderPrefix) {
			continue
		}
		filename, err := ParseFileHeader(line)
		if err != nil {
			continue
		}
		if FileExtension(filename) == extension {
			count++
		}
	}
	return count
}
