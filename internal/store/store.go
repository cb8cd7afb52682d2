// Package store persists crawled pull requests and issues as JSON files laid
// out as <dir>/<owner>/<repo>/{pulls-page-N,pull-N,issue-N}.json.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/agusespa/bugharvest/internal/types"
	"github.com/google/go-github/v68/github"
)

const (
	pullPrefix = "pull-"
	jsonSuffix = ".json"
)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) RepoDir(owner, repo string) string {
	return filepath.Join(s.dir, owner, repo)
}

func (s *Store) PullsPagePath(owner, repo string, page int) string {
	return filepath.Join(s.RepoDir(owner, repo), fmt.Sprintf("pulls-page-%d.json", page))
}

func (s *Store) PullPath(owner, repo string, number int) string {
	return filepath.Join(s.RepoDir(owner, repo), fmt.Sprintf("%s%d%s", pullPrefix, number, jsonSuffix))
}

func (s *Store) IssuePath(owner, repo, number string) string {
	return filepath.Join(s.RepoDir(owner, repo), fmt.Sprintf("issue-%s.json", number))
}

// ResetRepoDir removes anything a previous crawl left for the repository and
// recreates its directory.
func (s *Store) ResetRepoDir(owner, repo string) error {
	dir := s.RepoDir(owner, repo)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

func (s *Store) SavePullsPage(owner, repo string, page int, pulls []*github.PullRequest) error {
	return SaveJSON(pulls, s.PullsPagePath(owner, repo, page))
}

func (s *Store) SavePull(owner, repo string, pull *types.PullRecord) error {
	return SaveJSON(pull, s.PullPath(owner, repo, pull.GetNumber()))
}

func (s *Store) LoadPull(owner, repo string, number int) (*types.PullRecord, error) {
	var pull types.PullRecord
	if err := LoadJSON(s.PullPath(owner, repo, number), &pull); err != nil {
		return nil, err
	}
	if pull.PullRequest == nil {
		return nil, fmt.Errorf("pull record %s/%s#%d is empty", owner, repo, number)
	}
	return &pull, nil
}

func (s *Store) SaveIssue(owner, repo, number string, issue *github.Issue) error {
	return SaveJSON(issue, s.IssuePath(owner, repo, number))
}

func (s *Store) LoadIssue(owner, repo, number string) (*github.Issue, error) {
	var issue github.Issue
	if err := LoadJSON(s.IssuePath(owner, repo, number), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// OwnerRepoPairs lists every crawled repository as [owner, repo], sorted.
func (s *Store) OwnerRepoPairs() ([][2]string, error) {
	owners, err := subdirs(s.dir)
	if err != nil {
		return nil, err
	}

	var pairs [][2]string
	for _, owner := range owners {
		repos, err := subdirs(filepath.Join(s.dir, owner))
		if err != nil {
			return nil, err
		}
		for _, repo := range repos {
			pairs = append(pairs, [2]string{owner, repo})
		}
	}
	return pairs, nil
}

// PullNumbers lists the saved pull numbers of a repository in ascending order.
func (s *Store) PullNumbers(owner, repo string) ([]int, error) {
	entries, err := os.ReadDir(s.RepoDir(owner, repo))
	if err != nil {
		return nil, fmt.Errorf("failed to list pulls: %w", err)
	}

	var numbers []int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, pullPrefix) || !strings.HasSuffix(name, jsonSuffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, pullPrefix), jsonSuffix))
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

func SaveJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
