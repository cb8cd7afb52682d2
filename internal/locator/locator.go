// Package locator finds a function's line span in the full text of a source file.
package locator

import (
	"strings"

	"github.com/agusespa/bugharvest/internal/types"
)

// Locator finds the span of the named function in a file.
type Locator interface {
	Locate(lines []string, functionName string) types.Span
}

// BraceLocator is a text heuristic: a function starts on a line where the
// definition keyword precedes "name(", and ends on the first later line whose
// first closing brace sits in the same column as that keyword. It assumes the
// closing brace is aligned with the definition, as gofmt leaves it.
type BraceLocator struct {
	Keyword string
}

func NewBraceLocator(keyword string) *BraceLocator {
	return &BraceLocator{Keyword: keyword}
}

func (l *BraceLocator) Locate(lines []string, functionName string) types.Span {
	var span types.Span
	anchor := -1
	signature := functionName + "("

	for i, line := range lines {
		nameAt := strings.Index(line, signature)
		keywordAt := strings.Index(line, l.Keyword)

		if keywordAt != -1 && nameAt != -1 && keywordAt < nameAt {
			span.Start = i
			anchor = keywordAt
		}
		if anchor != -1 && anchor == strings.Index(line, "}") {
			span.End = i
			break
		}
	}

	return span
}
