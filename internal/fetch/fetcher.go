// Package fetch retrieves GitHub API documents and raw files with bounded
// retries and rate-limit aware waiting.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agusespa/bugharvest/internal/types"
	"github.com/agusespa/bugharvest/internal/utils"
	"github.com/google/go-github/v68/github"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const acceptHeader = "application/vnd.github.v3+json"

type Options struct {
	Token           string
	MaxTries        int
	RetryWait       time.Duration
	RequestInterval time.Duration // minimum gap between requests, 0 disables pacing
	CacheSize       int           // raw file cache entries, 0 disables caching
}

type Fetcher struct {
	client    *http.Client
	opts      Options
	limiter   *rate.Limiter
	lineCache *lru.Cache[string, []string]
	logger    *zap.Logger

	// sleep waits for d or until ctx is done; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func New(opts Options, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxTries < 1 {
		opts.MaxTries = 1
	}

	client := &http.Client{}
	if opts.Token != "" {
		client = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: opts.Token, TokenType: "token"},
		))
	}

	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}

	f := &Fetcher{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		sleep:   sleepContext,
		now:     time.Now,
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, []string](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create file cache: %w", err)
		}
		f.lineCache = cache
	}

	return f, nil
}

// GetJSON fetches url and decodes the JSON body into v.
func (f *Fetcher) GetJSON(ctx context.Context, url string, v any) error {
	_, err := f.get(ctx, url, func(body []byte) error {
		if err := checkAPIMessage(body); err != nil {
			return err
		}
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	})
	return err
}

// GetText fetches url and returns the body as text.
func (f *Fetcher) GetText(ctx context.Context, url string) (string, error) {
	body, err := f.get(ctx, url, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetLines fetches url and splits the body into lines that keep their
// newline. Results are cached by URL.
func (f *Fetcher) GetLines(ctx context.Context, url string) ([]string, error) {
	if f.lineCache != nil {
		if lines, ok := f.lineCache.Get(url); ok {
			return lines, nil
		}
	}

	text, err := f.GetText(ctx, url)
	if err != nil {
		return nil, err
	}

	lines := utils.SplitLinesKeepEnds(text)
	if f.lineCache != nil {
		f.lineCache.Add(url, lines)
	}
	return lines, nil
}

// get retries url until validate accepts the body, a permanent failure
// occurs, or MaxTries attempts have failed. Waiting out a rate limit does not
// count as an attempt.
func (f *Fetcher) get(ctx context.Context, url string, validate func([]byte) error) ([]byte, error) {
	tries := 0
	for {
		body, wait, err := f.try(ctx, url)
		if err == nil && validate != nil {
			err = validate(body)
		}
		if err == nil {
			return body, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		var fetchErr *types.FetchError
		if errors.As(err, &fetchErr) {
			return nil, err
		}

		if wait > 0 {
			f.logger.Info("rate limit reached, waiting for reset",
				zap.String("url", url), zap.Duration("wait", wait))
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		tries++
		f.logger.Warn("request failed",
			zap.String("url", url), zap.Int("tries", tries), zap.Error(err))
		if tries >= f.opts.MaxTries {
			return nil, &types.TooManyFailuresError{URL: url, Tries: tries, Err: err}
		}
		if err := f.sleep(ctx, f.opts.RetryWait); err != nil {
			return nil, err
		}
	}
}

// try performs a single request. A positive wait means the request hit a
// rate limit and should be repeated after that long.
func (f *Fetcher) try(ctx context.Context, url string) ([]byte, time.Duration, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, &types.FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Debug("error closing response body", zap.Error(closeErr))
		}
	}()

	if err := github.CheckResponse(resp); err != nil {
		return nil, f.rateLimitWait(err), f.classify(url, resp.StatusCode, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, 0, nil
}

func (f *Fetcher) rateLimitWait(err error) time.Duration {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := rateErr.Rate.Reset.Time.Sub(f.now()) + time.Second
		if wait < time.Second {
			wait = time.Second
		}
		return wait
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if abuseErr.RetryAfter != nil && *abuseErr.RetryAfter > 0 {
			return *abuseErr.RetryAfter
		}
		return max(f.opts.RetryWait, time.Second)
	}

	return 0
}

func (f *Fetcher) classify(url string, status int, err error) error {
	switch status {
	case http.StatusNotFound, http.StatusGone:
		return &types.FetchError{URL: url, StatusCode: status, Err: err}
	}
	return fmt.Errorf("request failed with status %d: %w", status, err)
}

// checkAPIMessage rejects API error documents that arrive with a success status.
func checkAPIMessage(body []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		// not an object; arrays carry no message
		return nil
	}
	if msg, ok := doc["message"]; ok {
		return fmt.Errorf("api error: %s", string(msg))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
