// Package config resolves chunkhash settings from defaults, an optional
// chunkhash.yaml, CHUNKHASH_* environment variables and command line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"chunkhash/internal/hashing"
	"chunkhash/internal/report"
)

const EnvPrefix = "CHUNKHASH"

type Config struct {
	Workers   int    `mapstructure:"workers"`
	BlockSize int    `mapstructure:"-"`
	Algorithm string `mapstructure:"algorithm"`
	Format    string `mapstructure:"format"`
	Progress  bool   `mapstructure:"progress"`
	LogLevel  string `mapstructure:"log_level"`
	Index     string `mapstructure:"index"`
	// Jobs is the number of files verified concurrently.
	Jobs  int         `mapstructure:"jobs"`
	Watch WatchConfig `mapstructure:"watch"`
}

type WatchConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	Patterns  []string      `mapstructure:"patterns"`
	TailMagic string        `mapstructure:"tail_magic"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("workers", hashing.DefaultWorkers)
	v.SetDefault("block_size", fmt.Sprint(hashing.DefaultBlockSize))
	v.SetDefault("algorithm", hashing.DefaultAlgorithm)
	v.SetDefault("format", report.FormatText)
	v.SetDefault("progress", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("index", "")
	v.SetDefault("jobs", 2)
	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("watch.patterns", []string{})
	v.SetDefault("watch.tail_magic", "")
}

// New returns a viper instance with defaults and environment lookup set up.
// When configFile is empty, chunkhash.yaml in the working directory is read
// if present.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("chunkhash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	size, err := ParseBlockSize(v.GetString("block_size"))
	if err != nil {
		return nil, err
	}
	cfg.BlockSize = size

	magic, err := unescape(cfg.Watch.TailMagic)
	if err != nil {
		return nil, fmt.Errorf("%w: config: watch.tail_magic: %v", hashing.ErrInvalidArgument, err)
	}
	cfg.Watch.TailMagic = magic

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseBlockSize accepts plain byte counts as well as sizes such as "64KiB"
// or "1MB".
func ParseBlockSize(s string) (int, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: config: block_size %q: %v", hashing.ErrInvalidArgument, s, err)
	}
	if n == 0 || n > 1<<30 {
		return 0, fmt.Errorf("%w: config: block_size must be between 1 byte and 1GiB, got %q", hashing.ErrInvalidArgument, s)
	}
	return int(n), nil
}

// unescape lets tail_magic carry Go escapes such as \r\n from flags and
// environment variables.
func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	return strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
}

func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: config: workers must be positive, got %d", hashing.ErrInvalidArgument, c.Workers)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: config: block_size must be positive", hashing.ErrInvalidArgument)
	}
	if c.Jobs <= 0 {
		return fmt.Errorf("%w: config: jobs must be positive, got %d", hashing.ErrInvalidArgument, c.Jobs)
	}
	if !hashing.Supported(c.Algorithm) {
		return fmt.Errorf("%w: config: unsupported algorithm %q (want one of %s)",
			hashing.ErrInvalidArgument, c.Algorithm, strings.Join(hashing.Algorithms(), ", "))
	}
	if !report.ValidFormat(c.Format) {
		return fmt.Errorf("%w: config: unknown format %q", hashing.ErrInvalidArgument, c.Format)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: config: watch.debounce must not be negative", hashing.ErrInvalidArgument)
	}
	return nil
}

func (c *Config) HashOptions() hashing.Options {
	return hashing.Options{
		Workers:   c.Workers,
		BlockSize: c.BlockSize,
		Algorithm: c.Algorithm,
	}
}
