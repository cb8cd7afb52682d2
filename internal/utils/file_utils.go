package utils

import (
	"strings"
)

// FileExtension returns the text after the last dot of the path's base name.
// A name without a dot is returned whole, so "Makefile" never matches "go".
func FileExtension(filePath string) string {
	base := filePath
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i+1:]
	}
	return base
}

// EscapePath encodes path separators so a repository path fits in one URL segment.
func EscapePath(filePath string) string {
	return strings.ReplaceAll(filePath, "/", "%2F")
}

// SplitLinesKeepEnds splits text into lines, each keeping its trailing newline.
func SplitLinesKeepEnds(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
