// Package config loads the report definition stored as report.toml in the data directory.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileName is the name of the report definition inside the data directory.
const FileName = "report.toml"

// EnvPrefix is the prefix of environment overrides, e.g. GHMETRICS_RUN__CONCURRENCY.
const EnvPrefix = "GHMETRICS_"

const dateLayout = "2006-01-02"

// Config is the report definition.
type Config struct {
	GitHub          GitHubConfig          `koanf:"github"`
	DataSource      DataSourceConfig      `koanf:"data_source"`
	HighContributor HighContributorConfig `koanf:"high_contributor"`
	Run             RunConfig             `koanf:"run"`
	Cache           CacheConfig           `koanf:"cache"`
	Sheets          SheetsConfig          `koanf:"sheets"`
}

type GitHubConfig struct {
	Org string `koanf:"org"`
	// Repos may be empty, in which case every repository of Org is analyzed.
	Repos  []string `koanf:"repos"`
	Robots []string `koanf:"robots"`
}

type DataSourceConfig struct {
	StartDate string `koanf:"start_date"`
	EndDate   string `koanf:"end_date"`
}

// HighContributorConfig holds the thresholds of the high-contributor report.
type HighContributorConfig struct {
	HighReviewerMinPercentage          int `koanf:"high_reviewer_min_percentage"`
	HighReviewerMinPRs                 int `koanf:"high_reviewer_min_prs"`
	ReviewerSaturationThreshold        int `koanf:"reviewer_saturation_threshold"`
	AuthorSaturationThreshold          int `koanf:"author_saturation_threshold"`
	HighParticipantMinPercentage       int `koanf:"high_participant_min_percentage"`
	HighParticipantMinPRs              int `koanf:"high_participant_min_prs"`
	HighAuthorMinPercentage            int `koanf:"high_author_min_percentage"`
	HighAuthorMinPRs                   int `koanf:"high_author_min_prs"`
	HighContributorCategoriesThreshold int `koanf:"high_contributor_categories_threshold"`
}

type RunConfig struct {
	Concurrency       int           `koanf:"concurrency"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	MaxRetries        int           `koanf:"max_retries"`
	RetryBaseDelay    time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay     time.Duration `koanf:"retry_max_delay"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

type CacheConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `koanf:"backend"`
}

type SheetsConfig struct {
	SpreadsheetID   string `koanf:"spreadsheet_id"`
	CredentialsFile string `koanf:"credentials_file"`
}

// DefaultRobots are automation accounts that are left out of contributor tables.
var DefaultRobots = []string{
	"rust-highfive",
	"bors",
	"rustbot",
	"rust-log-analyzer",
	"rust-timer",
	"rfcbot",
	"dependabot",
	"github-actions",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"github.robots": DefaultRobots,

		"high_contributor.high_reviewer_min_percentage":          5,
		"high_contributor.high_reviewer_min_prs":                 20,
		"high_contributor.reviewer_saturation_threshold":         50,
		"high_contributor.author_saturation_threshold":           50,
		"high_contributor.high_participant_min_percentage":       5,
		"high_contributor.high_participant_min_prs":              20,
		"high_contributor.high_author_min_percentage":            5,
		"high_contributor.high_author_min_prs":                   20,
		"high_contributor.high_contributor_categories_threshold": 2,

		"run.concurrency":         4,
		"run.request_timeout":     "30s",
		"run.max_retries":         3,
		"run.retry_base_delay":    "1s",
		"run.retry_max_delay":     "30s",
		"run.requests_per_second": 5.0,

		"cache.backend": "file",
	}
}

// Load reads DIR/report.toml, applies environment overrides and validates the result.
func Load(dataDir string) (*Config, error) {
	return LoadFile(filepath.Join(dataDir, FileName))
}

// LoadFile is Load for an explicit file path.
func LoadFile(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the built-in settings with environment overrides applied,
// for commands that run without a report.toml. It is not validated.
func Defaults() (*Config, error) {
	return load("")
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config %s: %w", path, err)
		}
	}
	// GHMETRICS_RUN__CONCURRENCY -> run.concurrency; a double underscore separates sections
	// so that single underscores inside key names survive.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func Validate(cfg *Config) error {
	var errs []error
	if strings.TrimSpace(cfg.GitHub.Org) == "" {
		errs = append(errs, errors.New("github.org is required"))
	}
	start, errStart := time.Parse(dateLayout, cfg.DataSource.StartDate)
	if errStart != nil {
		errs = append(errs, fmt.Errorf("data_source.start_date must be YYYY-MM-DD: %w", errStart))
	}
	end, errEnd := time.Parse(dateLayout, cfg.DataSource.EndDate)
	if errEnd != nil {
		errs = append(errs, fmt.Errorf("data_source.end_date must be YYYY-MM-DD: %w", errEnd))
	}
	if errStart == nil && errEnd == nil && end.Before(start) {
		errs = append(errs, errors.New("data_source.end_date is before start_date"))
	}
	if cfg.Run.Concurrency < 1 {
		errs = append(errs, errors.New("run.concurrency must be at least 1"))
	}
	if cfg.Run.RequestTimeout <= 0 {
		errs = append(errs, errors.New("run.request_timeout must be positive"))
	}
	if cfg.Run.MaxRetries < 0 {
		errs = append(errs, errors.New("run.max_retries must not be negative"))
	}
	if cfg.Run.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("run.requests_per_second must not be negative"))
	}
	switch cfg.Cache.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be \"file\" or \"sqlite\", got %q", cfg.Cache.Backend))
	}
	for _, repo := range cfg.GitHub.Repos {
		if strings.Contains(repo, "/") {
			errs = append(errs, fmt.Errorf("github.repos entry %q must be a bare repository name", repo))
		}
	}
	return errors.Join(errs...)
}

// Period renders the reporting window as used in output tables.
func (c *Config) Period() string {
	return c.DataSource.StartDate + "<>" + c.DataSource.EndDate
}

// DateRange renders the window as a GitHub search qualifier value.
func (c *Config) DateRange() string {
	return c.DataSource.StartDate + ".." + c.DataSource.EndDate
}
