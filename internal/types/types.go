package types

import (
	"github.com/google/go-github/v68/github"
)

// TouchedSymbol is one entry of the diff scanner output: either a file of the
// target type or the hunk-header function marker of a function changed in it.
type TouchedSymbol struct {
	Name   string
	IsFile bool
}

// PullRecord is a crawled pull request as persisted by the crawl stage.
type PullRecord struct {
	*github.PullRequest

	NumModifiedFiles  int    `json:"num_modified_files"`
	LinkedIssueNumber string `json:"linked_issue_number"`
}

// Revision identifies the defective (base) and clean (head) side of a pull request.
type Revision struct {
	Owner        string
	Repo         string
	DefectiveSHA string
	CleanSHA     string
	Title        string
}

// CrawlStats counts what one repository crawl has seen.
type CrawlStats struct {
	Pulls         int
	DefectPulls   int
	ModifiedPulls int
	ModifiedFiles int
	SavedPulls    int
	Issues        int
}

// WriteStats counts what one repository write has produced.
type WriteStats struct {
	Pulls     int
	Skipped   int
	Files     int
	Functions int
}

func (s *WriteStats) Add(files, functions int) {
	s.Files += files
	s.Functions += functions
}
