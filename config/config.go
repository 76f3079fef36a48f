// Package config resolves mdmend configuration with precedence
// defaults < config file < environment (MDMEND_*).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/gaurav-prasanna/mdmend/core/postprocess"
)

// Configuration validation errors.
var (
	ErrInvalidLogLevel     = errors.New("log.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("log.format must be one of: console, json")
	ErrUnknownPass         = errors.New("unknown post-processing pass")
	ErrNoExtensions        = errors.New("fix.extensions must list at least one extension")
	ErrInvalidConcurrency  = errors.New("concurrency must be at least 1")
	ErrInvalidTimeout      = errors.New("fetch.timeout must be positive")
	ErrInvalidMaxPages     = errors.New("crawl.max_pages must be at least 1")
	ErrInvalidPreviewWidth = errors.New("preview.width must be at least 20")
)

// Config is the resolved configuration.
type Config struct {
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Fix         FixConfig         `mapstructure:"fix" yaml:"fix"`
	Postprocess PostprocessConfig `mapstructure:"postprocess" yaml:"postprocess"`
	Fetch       FetchConfig       `mapstructure:"fetch" yaml:"fetch"`
	Extract     ExtractConfig     `mapstructure:"extract" yaml:"extract"`
	Crawl       CrawlConfig       `mapstructure:"crawl" yaml:"crawl"`
	Preview     PreviewConfig     `mapstructure:"preview" yaml:"preview"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// FixConfig controls `mdmend fix` and `mdmend audit`.
type FixConfig struct {
	Passes      []string `mapstructure:"passes" yaml:"passes"`
	Extensions  []string `mapstructure:"extensions" yaml:"extensions"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
}

// PostprocessConfig controls the passes applied to converted pages.
type PostprocessConfig struct {
	Passes []string `mapstructure:"passes" yaml:"passes"`
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

type ExtractConfig struct {
	NoiseSelectors []string `mapstructure:"noise_selectors" yaml:"noise_selectors"`
}

type CrawlConfig struct {
	MaxPages    int `mapstructure:"max_pages" yaml:"max_pages"`
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

type PreviewConfig struct {
	Style string `mapstructure:"style" yaml:"style"`
	Width int    `mapstructure:"width" yaml:"width"`
}

// OutputConfig applies to convert only; fix takes its destination from flags.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Option is a configuration key with its default and meaning.
type Option struct {
	Key     string
	Default any
	Comment string
}

// Options returns every configuration key with its default.
func Options() []Option {
	return []Option{
		{Key: "log.level", Default: "info", Comment: "Minimum log level: debug, info, warn, error"},
		{Key: "log.format", Default: "console", Comment: "Log encoding: console or json"},

		{Key: "fix.passes", Default: []string{postprocess.BoldSpacing}, Comment: "Passes applied by fix and audit"},
		{Key: "fix.extensions", Default: []string{".md", ".markdown"}, Comment: "File extensions picked up when walking directories"},
		{Key: "fix.concurrency", Default: 4, Comment: "Documents processed in parallel"},

		{Key: "postprocess.passes", Default: postprocess.DefaultPasses(), Comment: "Passes applied to converted pages"},

		{Key: "fetch.timeout", Default: 30 * time.Second, Comment: "HTTP timeout per request"},
		{Key: "fetch.user_agent", Default: "mdmend/1.0 (https://github.com/gaurav-prasanna/mdmend)", Comment: "User-Agent sent when fetching pages"},

		{Key: "extract.noise_selectors", Default: DefaultNoiseSelectors(), Comment: "CSS selectors removed before conversion"},

		{Key: "crawl.max_pages", Default: 100, Comment: "Upper bound on pages discovered by convert --all"},
		{Key: "crawl.concurrency", Default: 4, Comment: "Pages converted in parallel by convert --all"},

		{Key: "preview.style", Default: "dark", Comment: "glamour style used by preview"},
		{Key: "preview.width", Default: 80, Comment: "Word wrap width used by preview"},

		{Key: "output.dir", Default: "", Comment: "Directory convert writes pages to; empty means the working directory. fix only writes elsewhere with --output_dir"},
	}
}

// DefaultNoiseSelectors are HTML elements removed before extraction.
func DefaultNoiseSelectors() []string {
	return []string{
		"script", "style", "noscript",
		"nav", "footer", "header",
		"img", "picture", "figure", "figcaption",
		"iframe", "video", "audio",
		"svg", "canvas",
		"form", "button", "input", "select", "textarea",
		".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
	}
}

// Load applies defaults, reads the config file (if any) and environment
// overrides into v, then decodes and validates the result. A config file
// named explicitly with v.SetConfigFile must exist; the default search
// locations are optional.
func Load(v *viper.Viper) (*Config, error) {
	explicit := v.ConfigFileUsed() != ""
	if !explicit {
		v.SetConfigName("mdmend")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "mdmend"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "mdmend"))
		}
	}

	for _, o := range Options() {
		v.SetDefault(o.Key, o.Default)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("mdmend")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// Comma-separated lists from the environment arrive as one element.
	cfg.Fix.Passes = splitList(cfg.Fix.Passes)
	cfg.Fix.Extensions = splitList(cfg.Fix.Extensions)
	cfg.Postprocess.Passes = splitList(cfg.Postprocess.Passes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, ErrInvalidLogLevel)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		err = multierr.Append(err, ErrInvalidLogFormat)
	}

	for _, p := range c.Fix.Passes {
		if !postprocess.Known(p) {
			err = multierr.Append(err, fmt.Errorf("fix.passes: %w: %q", ErrUnknownPass, p))
		}
	}
	for _, p := range c.Postprocess.Passes {
		if !postprocess.Known(p) {
			err = multierr.Append(err, fmt.Errorf("postprocess.passes: %w: %q", ErrUnknownPass, p))
		}
	}

	if len(c.Fix.Extensions) == 0 {
		err = multierr.Append(err, ErrNoExtensions)
	}
	if c.Fix.Concurrency < 1 {
		err = multierr.Append(err, fmt.Errorf("fix.concurrency: %w", ErrInvalidConcurrency))
	}
	if c.Fetch.Timeout <= 0 {
		err = multierr.Append(err, ErrInvalidTimeout)
	}
	if c.Crawl.MaxPages < 1 {
		err = multierr.Append(err, ErrInvalidMaxPages)
	}
	if c.Crawl.Concurrency < 1 {
		err = multierr.Append(err, fmt.Errorf("crawl.concurrency: %w", ErrInvalidConcurrency))
	}
	if c.Preview.Width < 20 {
		err = multierr.Append(err, ErrInvalidPreviewWidth)
	}

	return err
}

// HasExtension reports whether path carries one of the configured
// Markdown extensions.
func (c *FixConfig) HasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
