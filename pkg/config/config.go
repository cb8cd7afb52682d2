package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultPath = "bugharvest.json"

type Config struct {
	GitHub  GitHubConfig  `json:"github"`
	Crawl   CrawlConfig   `json:"crawl"`
	Dataset DatasetConfig `json:"dataset"`
	Split   SplitConfig   `json:"split"`
}

type GitHubConfig struct {
	Token                string `json:"token"`
	APIBaseURL           string `json:"api_base_url"`
	RawBaseURL           string `json:"raw_base_url"`
	MaxRequestTries      int    `json:"max_request_tries"`
	RequestRetryWaitSecs int    `json:"request_retry_wait_secs"`
	RequestIntervalMS    int    `json:"request_interval_ms"`
	CacheSize            int    `json:"cache_size"`
}

type CrawlConfig struct {
	Repos         []string `json:"repos"`
	DstDir        string   `json:"dst_dir"`
	StartPage     int      `json:"start_page"`
	PerPage       int      `json:"per_page"`
	SavePullPages bool     `json:"save_pull_pages"`
	BugLabel      string   `json:"bug_label"`
	FixKeywords   []string `json:"fix_keywords"`
}

type DatasetConfig struct {
	Extension       string `json:"extension"`
	FunctionKeyword string `json:"function_keyword"`
	CommentMarker   string `json:"comment_marker"`
	Delimiter       string `json:"delimiter"`
	ResultDir       string `json:"result_dir"`
}

type SplitConfig struct {
	TrainRatio float64 `json:"train_ratio"`
	Seed       uint64  `json:"seed"`
}

func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIBaseURL:           "https://api.github.com",
			RawBaseURL:           "https://github.com",
			MaxRequestTries:      5000,
			RequestRetryWaitSecs: 10,
			CacheSize:            256,
		},
		Crawl: CrawlConfig{
			DstDir:        "repos",
			StartPage:     1,
			PerPage:       100,
			SavePullPages: true,
			BugLabel:      "bug",
		},
		Dataset: DatasetConfig{
			Extension:       "go",
			FunctionKeyword: "func",
			CommentMarker:   "//",
			Delimiter:       "<CODESPLIT>",
			ResultDir:       "result",
		},
		Split: SplitConfig{
			TrainRatio: 0.8,
			Seed:       1,
		},
	}
}

// LoadConfig reads filename over the defaults, so absent keys keep their
// default values. The GitHub token falls back to GITHUB_TOKEN, read from the
// environment or a .env file. A missing file at DefaultPath yields the
// defaults.
func LoadConfig(filename string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, os.ErrNotExist) && filename == DefaultPath:
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	_ = godotenv.Load()
	if config.GitHub.Token == "" {
		config.GitHub.Token = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Dataset.Extension == "":
		return errors.New("dataset.extension must not be empty")
	case c.Dataset.FunctionKeyword == "":
		return errors.New("dataset.function_keyword must not be empty")
	case c.Dataset.Delimiter == "":
		return errors.New("dataset.delimiter must not be empty")
	case c.Crawl.PerPage <= 0:
		return fmt.Errorf("crawl.per_page must be positive, got %d", c.Crawl.PerPage)
	case c.Crawl.StartPage <= 0:
		return fmt.Errorf("crawl.start_page must be positive, got %d", c.Crawl.StartPage)
	case c.GitHub.MaxRequestTries <= 0:
		return fmt.Errorf("github.max_request_tries must be positive, got %d", c.GitHub.MaxRequestTries)
	case c.GitHub.RequestRetryWaitSecs < 0 || c.GitHub.RequestIntervalMS < 0 || c.GitHub.CacheSize < 0:
		return errors.New("github wait, interval and cache size must not be negative")
	case c.Split.TrainRatio <= 0 || c.Split.TrainRatio >= 1:
		return fmt.Errorf("split.train_ratio must be in (0, 1), got %v", c.Split.TrainRatio)
	}
	return nil
}

func (g GitHubConfig) RetryWait() time.Duration {
	return time.Duration(g.RequestRetryWaitSecs) * time.Second
}

func (g GitHubConfig) RequestInterval() time.Duration {
	return time.Duration(g.RequestIntervalMS) * time.Millisecond
}
