package types

import (
	"fmt"
	"strings"
)

// Span is a function's line range in a full file, both ends inclusive.
// The zero value means the function was not found.
type Span struct {
	Start int // index of the line holding the definition keyword
	End   int // index of the line holding the closing brace
}

// Valid reports whether the span can be extracted. A span whose end was never
// found keeps End at 0 and is rejected.
func (s Span) Valid() bool {
	return s.End > 0 && s.Start <= s.End
}

func (s Span) String() string {
	return fmt.Sprintf("(%d, %d)", s.Start, s.End)
}

// DatasetRow is one labeled function snippet.
type DatasetRow struct {
	Label        int
	SourceURL    string
	FunctionName string
	PullTitle    string
	Code         string
}

const (
	LabelDefective = 1
	LabelClean     = 0
)

// Format renders the row with its fields joined by delim, without a trailing newline.
func (r DatasetRow) Format(delim string) string {
	return strings.Join([]string{
		fmt.Sprintf("%d", r.Label),
		r.SourceURL,
		r.FunctionName,
		r.PullTitle,
		r.Code,
	}, delim)
}
