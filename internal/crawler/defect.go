package crawler

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-github/v68/github"
)

// DefaultFixKeywords are the words GitHub itself treats as closing an issue.
var DefaultFixKeywords = []string{"fix", "fixes", "fixed", "resolve", "resolves", "resolved"}

// DefectFilter decides whether a pull request fixes a defect.
type DefectFilter struct {
	bugLabel string
	keywords *regexp.Regexp
}

func NewDefectFilter(bugLabel string, keywords []string) (*DefectFilter, error) {
	if len(keywords) == 0 {
		keywords = DefaultFixKeywords
	}
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("invalid fix keywords: %w", err)
	}
	return &DefectFilter{bugLabel: bugLabel, keywords: re}, nil
}

// IsDefectRelated reports whether pr was merged and closed, and either carries
// the bug label first or mentions a fix keyword in its title or body.
func (f *DefectFilter) IsDefectRelated(pr *github.PullRequest) bool {
	if pr.MergedAt == nil || pr.GetState() != "closed" {
		return false
	}
	if len(pr.Labels) > 0 && pr.Labels[0].GetName() == f.bugLabel {
		return true
	}
	return f.HasKeyword(pr.GetBody()) || f.HasKeyword(pr.GetTitle())
}

func (f *DefectFilter) HasKeyword(s string) bool {
	return s != "" && f.keywords.MatchString(s)
}

// LinkedIssueNumber takes the last path segment of an issue URL as the issue
// number. It returns "" when that segment is not a number.
func LinkedIssueNumber(issueURL string) string {
	if issueURL == "" {
		return ""
	}
	last := path.Base(strings.TrimRight(issueURL, "/"))
	if _, err := strconv.Atoi(last); err != nil {
		return ""
	}
	return last
}
