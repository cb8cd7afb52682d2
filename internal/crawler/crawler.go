// Package crawler pages through a repository's closed pull requests and
// persists the defect fixes that touch files of the target type, together
// with their linked issues.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agusespa/bugharvest/internal/interrupt"
	"github.com/agusespa/bugharvest/internal/store"
	"github.com/agusespa/bugharvest/internal/types"
	"github.com/agusespa/bugharvest/internal/utils"
	"github.com/google/go-github/v68/github"
	"go.uber.org/zap"
)

// Fetcher is the subset of the HTTP fetcher the crawler needs.
type Fetcher interface {
	GetJSON(ctx context.Context, url string, v any) error
	GetText(ctx context.Context, url string) (string, error)
}

type Options struct {
	APIBaseURL    string
	PerPage       int
	SavePullPages bool
	Extension     string
}

type Crawler struct {
	fetcher Fetcher
	store   *store.Store
	filter  *DefectFilter
	opts    Options
	stop    *interrupt.Token
	logger  *zap.Logger
}

func New(fetcher Fetcher, st *store.Store, filter *DefectFilter, opts Options, stop *interrupt.Token, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.APIBaseURL = strings.TrimRight(opts.APIBaseURL, "/")
	return &Crawler{
		fetcher: fetcher,
		store:   st,
		filter:  filter,
		opts:    opts,
		stop:    stop,
		logger:  logger,
	}
}

func (c *Crawler) PullsURL(owner, repo string, page int) string {
	return fmt.Sprintf("%s/repos/%s/%s/pulls?state=closed&sort=created&direction=asc&per_page=%d&page=%d",
		c.opts.APIBaseURL, owner, repo, c.opts.PerPage, page)
}

// Crawl wipes the repository's previous output and walks its closed pull
// requests from startPage until a short page or a stop request. Only errors
// that must abort the whole repository are returned.
func (c *Crawler) Crawl(ctx context.Context, owner, repo string, startPage int) (types.CrawlStats, error) {
	var stats types.CrawlStats
	logger := c.logger.With(zap.String("repo", owner+"/"+repo))

	logger.Info("starting crawl", zap.Int("page", startPage))
	if err := c.store.ResetRepoDir(owner, repo); err != nil {
		return stats, err
	}

	for page := startPage; ; page++ {
		var pulls []*github.PullRequest
		if err := c.fetcher.GetJSON(ctx, c.PullsURL(owner, repo, page), &pulls); err != nil {
			return stats, fmt.Errorf("failed to list pulls page %d: %w", page, err)
		}

		if c.opts.SavePullPages {
			if err := c.store.SavePullsPage(owner, repo, page, pulls); err != nil {
				return stats, err
			}
		}

		for _, pr := range pulls {
			if err := c.crawlPull(ctx, owner, repo, pr, &stats); err != nil {
				if isFatal(err) {
					return stats, err
				}
				logger.Warn("skipping pull", zap.Int("pull", pr.GetNumber()), zap.Error(err))
			}
		}

		logger.Info("page finished", zap.Int("page", page))

		if len(pulls) < c.opts.PerPage {
			logger.Info("crawl finished",
				zap.Int("pulls", stats.Pulls),
				zap.Int("defect_pulls", stats.DefectPulls),
				zap.Int("modified_pulls", stats.ModifiedPulls),
				zap.Int("modified_files", stats.ModifiedFiles),
				zap.Int("saved_pulls", stats.SavedPulls),
				zap.Int("issues", stats.Issues))
			return stats, nil
		}

		if c.stop.Stopped() {
			logger.Warn("crawl interrupted", zap.Int("next_page", page+1))
			return stats, nil
		}
	}
}

func (c *Crawler) crawlPull(ctx context.Context, owner, repo string, pr *github.PullRequest, stats *types.CrawlStats) error {
	stats.Pulls++
	if !c.filter.IsDefectRelated(pr) {
		return nil
	}
	stats.DefectPulls++

	diffText, err := c.fetcher.GetText(ctx, pr.GetDiffURL())
	if err != nil {
		return fmt.Errorf("failed to fetch diff: %w", err)
	}

	modified := utils.CountModifiedFiles(diffText, c.opts.Extension)
	stats.ModifiedFiles += modified
	if modified == 0 {
		return nil
	}
	stats.ModifiedPulls++

	issueNumber := LinkedIssueNumber(pr.GetIssueURL())
	if issueNumber == "" {
		return nil
	}

	record := &types.PullRecord{
		PullRequest:       pr,
		NumModifiedFiles:  modified,
		LinkedIssueNumber: issueNumber,
	}
	if err := c.store.SavePull(owner, repo, record); err != nil {
		return err
	}
	stats.SavedPulls++

	var issue github.Issue
	if err := c.fetcher.GetJSON(ctx, pr.GetIssueURL(), &issue); err != nil {
		return fmt.Errorf("failed to fetch issue %s: %w", issueNumber, err)
	}
	if err := c.store.SaveIssue(owner, repo, issueNumber, &issue); err != nil {
		return err
	}
	stats.Issues++

	return nil
}

// isFatal reports whether err must abort the repository rather than one pull.
func isFatal(err error) bool {
	var tooMany *types.TooManyFailuresError
	return errors.As(err, &tooMany) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
