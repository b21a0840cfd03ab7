// Package config assembles run settings from an optional YAML file, a .env
// file and environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shpitdev/fiofix/pkg/batch"
	"github.com/shpitdev/fiofix/pkg/fio"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

const (
	DefaultConfigPath = "fiofix.yaml"
	DefaultEnvFile    = ".env"
	DefaultPortalURL  = "https://orgm.riep.ru"
)

type Paths struct {
	Roster     string `yaml:"roster"`
	GivenNames string `yaml:"given_names"`
	Surnames   string `yaml:"surnames"`
	Blocklist  string `yaml:"blocklist"`
	OutputDir  string `yaml:"output_dir"`
}

type Portal struct {
	URL             string `yaml:"url"`
	CAPath          string `yaml:"ca_path"`
	PageSize        int    `yaml:"page_size"`
	KeepAbbreviated bool   `yaml:"keep_abbreviated"`
	Filter          string `yaml:"filter"`
}

type Config struct {
	Mode           string        `yaml:"mode"`
	MaxTabs        int           `yaml:"max_tabs"`
	Pace           time.Duration `yaml:"pace"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	NoOpPolicy     string        `yaml:"noop_policy"`
	NameStyle      string        `yaml:"name_style"`
	ReviewXLSX     bool          `yaml:"review_xlsx"`
	LogLevel       string        `yaml:"log_level"`
	LogJSON        bool          `yaml:"log_json"`

	Paths  Paths  `yaml:"paths"`
	Portal Portal `yaml:"portal"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Mode:           string(schema.ModeChangesInJSON),
		MaxTabs:        5,
		MaxRetries:     2,
		RequestTimeout: 30 * time.Second,
		NoOpPolicy:     "drop",
		NameStyle:      "full",
		LogLevel:       "info",
		Paths: Paths{
			Roster:     "data/authors.json",
			GivenNames: "data/json/names.json",
			Surnames:   "data/json/surnames.json",
			Blocklist:  "data/blocklist.json",
			OutputDir:  "result",
		},
		Portal: Portal{
			URL:      DefaultPortalURL,
			PageSize: 200,
		},
	}
}

// LoadOptions names the files to read. Empty paths fall back to the defaults,
// which may be absent; explicitly named files must exist.
type LoadOptions struct {
	ConfigPath string
	EnvFile    string
}

// Load builds and validates the configuration.
func Load(opts LoadOptions) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	cfg := Default()
	path, required := opts.ConfigPath, true
	if path == "" {
		path, required = DefaultConfigPath, false
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	required := true
	if path == "" {
		path, required = DefaultEnvFile, false
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read env file: %w", err)
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	c.Mode = envString("FIOFIX_MODE", c.Mode)
	if c.MaxTabs, err = envInt("MAX_TABS", c.MaxTabs); err != nil {
		return err
	}
	if c.Pace, err = envDuration("DISPATCH_PACE", c.Pace); err != nil {
		return err
	}
	if c.MaxRetries, err = envInt("MAX_RETRIES", c.MaxRetries); err != nil {
		return err
	}
	if c.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	c.NoOpPolicy = envString("NOOP_POLICY", c.NoOpPolicy)
	c.NameStyle = envString("NAME_STYLE", c.NameStyle)
	if c.ReviewXLSX, err = envBool("REVIEW_XLSX", c.ReviewXLSX); err != nil {
		return err
	}
	c.Portal.URL = envString("PORTAL_URL", c.Portal.URL)
	c.Portal.CAPath = envString("DEFAULT_CA_PATH", c.Portal.CAPath)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.ChangeMode(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Style(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxTabs < 1 {
		errs = append(errs, fmt.Errorf("max_tabs must be at least 1 (got %d)", c.MaxTabs))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative (got %d)", c.MaxRetries))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive (got %s)", c.RequestTimeout))
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		errs = append(errs, errors.New("paths.output_dir is required"))
	}
	if c.Portal.PageSize < 0 {
		errs = append(errs, fmt.Errorf("portal.page_size must not be negative (got %d)", c.Portal.PageSize))
	}
	return errors.Join(errs...)
}

func (c Config) ChangeMode() (schema.ChangeMode, error) {
	return schema.NormalizeMode(c.Mode)
}

func (c Config) Style() (fio.Style, error) {
	return fio.ParseStyle(c.NameStyle)
}

func (c Config) Policy() (batch.NoOpPolicy, error) {
	return batch.ParseNoOpPolicy(c.NoOpPolicy)
}
