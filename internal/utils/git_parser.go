package utils

import (
	"fmt"
	"strings"
)

// ParseOwnerRepo splits an "owner/repo" name.
func ParseOwnerRepo(fullName string) (owner, repo string, err error) {
	fullName = strings.TrimSpace(fullName)
	owner, repo, found := strings.Cut(fullName, "/")
	if !found || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository name %q, want owner/repo", fullName)
	}
	return owner, repo, nil
}

// ParseRepoList parses a newline or comma separated list of owner/repo names,
// skipping blanks.
func ParseRepoList(output string) []string {
	if output == "" {
		return []string{}
	}

	var repos []string
	fields := strings.FieldsFunc(output, func(r rune) bool {
		return r == '\n' || r == ','
	})

	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field != "" {
			repos = append(repos, field)
		}
	}

	return repos
}
