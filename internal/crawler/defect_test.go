package crawler

import (
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mergedPull(title, body string, labels ...string) *github.PullRequest {
	pr := &github.PullRequest{
		State:    github.Ptr("closed"),
		Title:    github.Ptr(title),
		Body:     github.Ptr(body),
		MergedAt: &github.Timestamp{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
	for _, l := range labels {
		pr.Labels = append(pr.Labels, &github.Label{Name: github.Ptr(l)})
	}
	return pr
}

func TestDefectFilter_IsDefectRelated(t *testing.T) {
	filter, err := NewDefectFilter("bug", nil)
	require.NoError(t, err)

	unmerged := mergedPull("fix crash", "")
	unmerged.MergedAt = nil

	open := mergedPull("fix crash", "")
	open.State = github.Ptr("open")

	tests := []struct {
		name     string
		pr       *github.PullRequest
		expected bool
	}{
		{"keyword in title", mergedPull("Fix crash on empty input", ""), true},
		{"keyword in body", mergedPull("Improve parser", "This resolves #12"), true},
		{"first label is bug", mergedPull("Improve parser", "", "bug", "docs"), true},
		{"bug label not first", mergedPull("Improve parser", "", "docs", "bug"), false},
		{"keyword inside a word", mergedPull("Add prefix option", "suffixed names"), false},
		{"no keyword no label", mergedPull("Add feature", "more options"), false},
		{"not merged", unmerged, false},
		{"not closed", open, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, filter.IsDefectRelated(tt.pr))
		})
	}
}

func TestDefectFilter_CustomKeywords(t *testing.T) {
	filter, err := NewDefectFilter("kind/bug", []string{"patch", "c++"})
	require.NoError(t, err)

	assert.True(t, filter.HasKeyword("Patch the leak"))
	assert.False(t, filter.HasKeyword("fix the leak"))
	assert.False(t, filter.HasKeyword(""))
}

func TestLinkedIssueNumber(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://api.github.com/repos/yomorun/yomo/issues/512", "512"},
		{"https://api.github.com/repos/yomorun/yomo/issues/512/", "512"},
		{"https://api.github.com/repos/yomorun/yomo/issues/abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, LinkedIssueNumber(tt.url))
		})
	}
}
