package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/agusespa/bugharvest/internal/crawler"
	"github.com/agusespa/bugharvest/internal/dataset"
	"github.com/agusespa/bugharvest/internal/divider"
	"github.com/agusespa/bugharvest/internal/fetch"
	"github.com/agusespa/bugharvest/internal/locator"
	"github.com/agusespa/bugharvest/internal/store"
	"github.com/agusespa/bugharvest/internal/utils"
	"github.com/agusespa/bugharvest/internal/writer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) newFetcher() (*fetch.Fetcher, error) {
	gh := a.cfg.GitHub
	return fetch.New(fetch.Options{
		Token:           gh.Token,
		MaxTries:        gh.MaxRequestTries,
		RetryWait:       gh.RetryWait(),
		RequestInterval: gh.RequestInterval(),
		CacheSize:       gh.CacheSize,
	}, a.logger)
}

func newCrawlCmd(a *app) *cobra.Command {
	var (
		repos     string
		startPage int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Download defect-fixing pull requests and their issues",
		Example: "  bugharvest crawl\n" +
			"  bugharvest crawl --repos yomorun/yomo,golang/go --start-page 3",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := a.cfg.Crawl.Repos
			if repos != "" {
				targets = utils.ParseRepoList(repos)
			}
			if len(targets) == 0 {
				return errors.New("no repositories to crawl, set crawl.repos or --repos")
			}
			if !cmd.Flags().Changed("start-page") {
				startPage = a.cfg.Crawl.StartPage
			}

			if a.cfg.GitHub.Token == "" {
				a.logger.Warn("no GitHub token configured, requests are unauthenticated")
			}

			fetcher, err := a.newFetcher()
			if err != nil {
				return err
			}
			filter, err := crawler.NewDefectFilter(a.cfg.Crawl.BugLabel, a.cfg.Crawl.FixKeywords)
			if err != nil {
				return err
			}
			c := crawler.New(fetcher, store.New(a.cfg.Crawl.DstDir), filter, crawler.Options{
				APIBaseURL:    a.cfg.GitHub.APIBaseURL,
				PerPage:       a.cfg.Crawl.PerPage,
				SavePullPages: a.cfg.Crawl.SavePullPages,
				Extension:     a.cfg.Dataset.Extension,
			}, a.stop, a.logger)

			for _, target := range targets {
				owner, repo, err := utils.ParseOwnerRepo(target)
				if err != nil {
					a.logger.Error("invalid repository", zap.String("repo", target), zap.Error(err))
					continue
				}
				if _, err := c.Crawl(cmd.Context(), owner, repo, startPage); err != nil {
					a.logger.Error("crawl aborted", zap.String("repo", target), zap.Error(err))
				}
				if a.stop.Stopped() {
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repos, "repos", "", "Comma or newline separated owner/repo list, overrides crawl.repos")
	cmd.Flags().IntVar(&startPage, "start-page", 1, "First pulls page to fetch, overrides crawl.start_page")
	return cmd
}

func newWriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "write",
		Short: "Build the paired function dataset from crawled pull requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher, err := a.newFetcher()
			if err != nil {
				return err
			}

			ds := a.cfg.Dataset
			emitter := dataset.NewEmitter(fetcher, locator.NewBraceLocator(ds.FunctionKeyword), dataset.Options{
				Delimiter:     ds.Delimiter,
				CommentMarker: ds.CommentMarker,
				RawBaseURL:    a.cfg.GitHub.RawBaseURL,
			}, a.logger)

			w := writer.New(store.New(a.cfg.Crawl.DstDir), fetcher, emitter, writer.Options{
				ResultDir: ds.ResultDir,
				Scan:      utils.ScanOptions{Extension: ds.Extension, FunctionKeyword: ds.FunctionKeyword},
				Progress:  os.Stdout,
			}, a.stop, a.logger)

			results, err := w.WriteAll(cmd.Context())
			if err != nil {
				return err
			}

			total := 0
			for _, stats := range results {
				total += stats.Functions
			}
			a.logger.Info("write finished", zap.Int("repos", len(results)), zap.Int("functions", total))
			return nil
		},
	}
}

func newDivideCmd(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:     "divide",
		Short:   "Split a dataset file into train, val and test subsets",
		Example: "  bugharvest divide --input result/yomorun_yomo_GHPR.txt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("--input is required")
			}
			d := divider.New(divider.Options{
				Delimiter:  a.cfg.Dataset.Delimiter,
				TrainRatio: a.cfg.Split.TrainRatio,
				Seed:       a.cfg.Split.Seed,
			}, a.logger)

			if _, err := d.DivideFile(input); err != nil {
				return fmt.Errorf("failed to divide %s: %w", input, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Dataset file produced by write")
	return cmd
}
