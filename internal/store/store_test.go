package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agusespa/bugharvest/internal/types"
	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PullRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.ResetRepoDir("yomorun", "yomo"))

	pull := &types.PullRecord{
		PullRequest: &github.PullRequest{
			Number:  github.Ptr(42),
			Title:   github.Ptr("fix nil deref"),
			DiffURL: github.Ptr("https://github.com/yomorun/yomo/pull/42.diff"),
			Base:    &github.PullRequestBranch{SHA: github.Ptr("base")},
			Head:    &github.PullRequestBranch{SHA: github.Ptr("head")},
		},
		NumModifiedFiles:  3,
		LinkedIssueNumber: "42",
	}
	require.NoError(t, s.SavePull("yomorun", "yomo", pull))

	loaded, err := s.LoadPull("yomorun", "yomo", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.GetNumber())
	assert.Equal(t, "fix nil deref", loaded.GetTitle())
	assert.Equal(t, "base", loaded.GetBase().GetSHA())
	assert.Equal(t, "head", loaded.GetHead().GetSHA())
	assert.Equal(t, 3, loaded.NumModifiedFiles)
	assert.Equal(t, "42", loaded.LinkedIssueNumber)
}

func TestStore_PullRecordKeepsGitHubFieldNames(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.ResetRepoDir("o", "r"))

	pull := &types.PullRecord{PullRequest: &github.PullRequest{Number: github.Ptr(1), DiffURL: github.Ptr("u")}}
	require.NoError(t, s.SavePull("o", "r", pull))

	data, err := os.ReadFile(s.PullPath("o", "r", 1))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"diff_url": "u"`)
	assert.Contains(t, string(data), `"num_modified_files": 0`)
}

func TestStore_LoadPullMissing(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.LoadPull("o", "r", 1)
	assert.Error(t, err)
}

func TestStore_IssueRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.ResetRepoDir("o", "r"))

	issue := &github.Issue{Number: github.Ptr(9), Title: github.Ptr("panic on start")}
	require.NoError(t, s.SaveIssue("o", "r", "9", issue))

	loaded, err := s.LoadIssue("o", "r", "9")
	require.NoError(t, err)
	assert.Equal(t, "panic on start", loaded.GetTitle())
}

func TestStore_ResetRepoDirWipesPreviousCrawl(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.ResetRepoDir("o", "r"))

	stale := filepath.Join(s.RepoDir("o", "r"), "pull-1.json")
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0o644))

	require.NoError(t, s.ResetRepoDir("o", "r"))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	info, err := os.Stat(s.RepoDir("o", "r"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_Listings(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.ResetRepoDir("zeta", "b"))
	require.NoError(t, s.ResetRepoDir("alpha", "y"))
	require.NoError(t, s.ResetRepoDir("alpha", "x"))

	dir := s.RepoDir("alpha", "x")
	for _, name := range []string{"pull-10.json", "pull-2.json", "pull-1.json", "issue-3.json", "pulls-page-1.json", "pull-abc.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	pairs, err := s.OwnerRepoPairs()
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"alpha", "x"}, {"alpha", "y"}, {"zeta", "b"}}, pairs)

	numbers, err := s.PullNumbers("alpha", "x")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 10}, numbers)
}

func TestStore_SavePullsPage(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.ResetRepoDir("o", "r"))

	pulls := []*github.PullRequest{{Number: github.Ptr(1)}, {Number: github.Ptr(2)}}
	require.NoError(t, s.SavePullsPage("o", "r", 3, pulls))

	var loaded []*github.PullRequest
	require.NoError(t, LoadJSON(s.PullsPagePath("o", "r", 3), &loaded))
	require.Len(t, loaded, 2)
	assert.Equal(t, 2, loaded[1].GetNumber())
}
