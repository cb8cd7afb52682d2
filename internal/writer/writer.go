// Package writer turns crawled pull requests into the per-repository dataset
// file.
package writer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agusespa/bugharvest/internal/dataset"
	"github.com/agusespa/bugharvest/internal/interrupt"
	"github.com/agusespa/bugharvest/internal/store"
	"github.com/agusespa/bugharvest/internal/types"
	"github.com/agusespa/bugharvest/internal/utils"
	"github.com/agusespa/bugharvest/pkg/progress"
	"go.uber.org/zap"
)

type Options struct {
	ResultDir string
	Scan      utils.ScanOptions
	// Progress receives the progress bar, nil hides it.
	Progress io.Writer
}

type Writer struct {
	store   *store.Store
	fetcher dataset.LineFetcher
	emitter *dataset.Emitter
	opts    Options
	stop    *interrupt.Token
	logger  *zap.Logger
}

func New(st *store.Store, fetcher dataset.LineFetcher, emitter *dataset.Emitter, opts Options, stop *interrupt.Token, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	return &Writer{
		store:   st,
		fetcher: fetcher,
		emitter: emitter,
		opts:    opts,
		stop:    stop,
		logger:  logger,
	}
}

func (w *Writer) DatasetPath(owner, repo string) string {
	return filepath.Join(w.opts.ResultDir, fmt.Sprintf("%s_%s_GHPR.txt", owner, repo))
}

// WriteAll writes the dataset of every crawled repository in name order. A
// repository that fails is logged and the next one is written.
func (w *Writer) WriteAll(ctx context.Context) (map[string]types.WriteStats, error) {
	pairs, err := w.store.OwnerRepoPairs()
	if err != nil {
		return nil, err
	}

	results := make(map[string]types.WriteStats, len(pairs))
	for _, pair := range pairs {
		owner, repo := pair[0], pair[1]
		stats, err := w.WriteRepo(ctx, owner, repo)
		results[owner+"/"+repo] = stats
		if err != nil {
			w.logger.Error("repository aborted", zap.String("repo", owner+"/"+repo), zap.Error(err))
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
		}
		if w.stop.Stopped() {
			break
		}
	}
	return results, nil
}

// WriteRepo truncates the repository's dataset file and appends the row
// pairs of each crawled pull request. Pull requests that fail are skipped;
// exhausted retries abort the repository.
func (w *Writer) WriteRepo(ctx context.Context, owner, repo string) (types.WriteStats, error) {
	var stats types.WriteStats
	logger := w.logger.With(zap.String("repo", owner+"/"+repo))

	numbers, err := w.store.PullNumbers(owner, repo)
	if err != nil {
		return stats, err
	}

	if err := os.MkdirAll(w.opts.ResultDir, 0o755); err != nil {
		return stats, fmt.Errorf("failed to create result directory: %w", err)
	}
	path := w.DatasetPath(owner, repo)
	file, err := os.Create(path)
	if err != nil {
		return stats, fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer file.Close()

	bar := progress.New(w.opts.Progress, owner+"/"+repo, len(numbers))
	bar.Start()
	defer bar.Stop()

	for _, number := range numbers {
		err := w.writePull(ctx, owner, repo, number, file, &stats)
		bar.Increment()
		if err != nil {
			var tooMany *types.TooManyFailuresError
			if errors.As(err, &tooMany) || ctx.Err() != nil {
				return stats, fmt.Errorf("pull %d: %w", number, err)
			}
			stats.Skipped++
			logger.Warn("skipping pull", zap.Int("pull", number), zap.Error(err))
		}

		if w.stop.Stopped() {
			logger.Warn("write interrupted", zap.Int("last_pull", number))
			break
		}
	}

	if err := file.Sync(); err != nil {
		return stats, fmt.Errorf("failed to flush dataset file: %w", err)
	}

	logger.Info("dataset written",
		zap.String("path", path),
		zap.Int("pulls", stats.Pulls),
		zap.Int("skipped", stats.Skipped),
		zap.Int("files", stats.Files),
		zap.Int("functions", stats.Functions))
	return stats, nil
}

func (w *Writer) writePull(ctx context.Context, owner, repo string, number int, sink io.Writer, stats *types.WriteStats) error {
	record, err := w.store.LoadPull(owner, repo, number)
	if err != nil {
		return err
	}

	diffLines, err := w.fetcher.GetLines(ctx, record.GetDiffURL())
	if err != nil {
		return fmt.Errorf("failed to fetch diff: %w", err)
	}

	symbols := utils.ScanTouchedSymbols(diffLines, w.opts.Scan, w.logger)
	rev := types.Revision{
		Owner:        owner,
		Repo:         repo,
		DefectiveSHA: record.GetBase().GetSHA(),
		CleanSHA:     record.GetHead().GetSHA(),
		Title:        record.GetTitle(),
	}

	files, functions, err := w.emitter.Emit(ctx, symbols, rev, sink)
	stats.Add(files, functions)
	if err != nil {
		return err
	}
	stats.Pulls++
	return nil
}
