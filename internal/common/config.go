package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the crawler's plain options record. It is loaded by LoadFromFiles
// (TOML) and validated with a struct-tag validator before any component is
// constructed from it, the same decode-then-validate shape as the codebase
// this one is descended from.
type Config struct {
	Crawl   CrawlConfig   `toml:"crawl" validate:"required"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// CrawlConfig holds the crawl-engine-facing options.
type CrawlConfig struct {
	StartURL           string   `toml:"start_url" validate:"required,url"`
	MaxDepth           int      `toml:"max_depth" validate:"min=0"`
	RequestDelay       Duration `toml:"request_delay"`
	RequestTimeout     Duration `toml:"request_timeout"`
	MaxRetries         int      `toml:"max_retries" validate:"min=0"`
	SupportedLanguages []string `toml:"supported_languages" validate:"min=1,dive,required"`
	MinContentLength   int      `toml:"min_content_length" validate:"min=0"`
	Concurrency        int      `toml:"concurrency" validate:"min=1"`
	SaveInterval       Duration `toml:"save_interval"`
}

// StorageConfig holds the file store's options.
type StorageConfig struct {
	OutputDir         string          `toml:"output_dir" validate:"required"`
	MaxFilenameLength int             `toml:"max_filename_length" validate:"min=1"`
	FolderOrg         FolderOrgConfig `toml:"folder_organization"`
}

// FolderOrgConfig selects the file store's folder layout (see internal/crawler/store).
type FolderOrgConfig struct {
	OrganizeBy         string `toml:"organize_by" validate:"oneof=flat category type date"`
	CategoryFolderName string `toml:"category_folder_name"`
	CreateSubfolders   bool   `toml:"create_subfolders"`
}

// LoggingConfig mirrors the teacher's LoggingConfig, trimmed to the fields
// this crawler's logger bootstrap actually reads.
type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"`
	File   string   `toml:"file"`
}

// Duration wraps time.Duration so TOML can parse "1s"/"30s" style strings
// the same way the teacher's crawler config does, while remaining a plain
// time.Duration to callers.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalTOML(data []byte) error {
	s := string(data)
	s = trimQuotes(s)
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalTOML() ([]byte, error) {
	return []byte(`"` + d.Duration.String() + `"`), nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// NewDefaultConfig returns the closed default set from the spec.
func NewDefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			MaxDepth:           5,
			RequestDelay:       Duration{1 * time.Second},
			RequestTimeout:     Duration{30 * time.Second},
			MaxRetries:         3,
			SupportedLanguages: []string{"en", "zh-cn", "zh"},
			MinContentLength:   20,
			Concurrency:        4,
			SaveInterval:       Duration{30 * time.Second},
		},
		Storage: StorageConfig{
			OutputDir:         "./wikipedia_data",
			MaxFilenameLength: 200,
			FolderOrg: FolderOrgConfig{
				OrganizeBy: "flat",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2
// -> ... -> CLI (applied later by the caller via ApplyFlagOverrides). Later
// files override earlier ones, same merge order as the teacher's
// LoadFromFiles.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ApplyFlagOverrides applies command-line flag overrides to config. Empty
// values leave the existing (file or default) setting untouched.
func ApplyFlagOverrides(config *Config, seedURL, outputDir string, maxDepth int) {
	if seedURL != "" {
		config.Crawl.StartURL = seedURL
	}
	if outputDir != "" {
		config.Storage.OutputDir = outputDir
	}
	if maxDepth >= 0 {
		config.Crawl.MaxDepth = maxDepth
	}
}
