package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"factlint/internal/extractor"
	"factlint/internal/ir"
	"factlint/internal/rules"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is looked up in the working directory when no --config is given.
const DefaultPath = ".factlint.yaml"

var Formats = []string{"text", "jsonl", "json", "sarif", "markdown"}

type Config struct {
	Rules struct {
		Disabled []string          `yaml:"disabled"`
		Severity map[string]string `yaml:"severity"`
		// Packs are YAML rule packs, relative to the config file.
		Packs []string `yaml:"packs"`
	} `yaml:"rules"`

	// Extractor entries are added to the built-in API tables.
	Extractor extractor.Config `yaml:"extractor"`

	Engine struct {
		Workers int `yaml:"workers"`
	} `yaml:"engine"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`

	Output struct {
		Format      string `yaml:"format"`
		MinSeverity string `yaml:"min_severity"`
		// FailOn is a severity or "none".
		FailOn string `yaml:"fail_on"`
	} `yaml:"output"`

	Storage struct {
		DB string `yaml:"db"`
	} `yaml:"storage"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	cfg.Log.Level = "info"
	cfg.Output.Format = "text"
	cfg.Output.MinSeverity = "info"
	cfg.Output.FailOn = "error"
	cfg.Storage.DB = ".factlint/runs.db"
	return &cfg
}

// LoadConfig reads path on top of the defaults. A missing file is not an
// error unless required is set.
func LoadConfig(path string, required bool) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		base := filepath.Dir(path)
		for i, p := range cfg.Rules.Packs {
			if !filepath.IsAbs(p) {
				cfg.Rules.Packs[i] = filepath.Join(base, p)
			}
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if level := os.Getenv("FACTLINT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if v := os.Getenv("FACTLINT_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FACTLINT_LOG_JSON: %w", err)
		}
		c.Log.JSON = b
	}
	if v := os.Getenv("FACTLINT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FACTLINT_WORKERS: %w", err)
		}
		c.Engine.Workers = n
	}
	if db := os.Getenv("FACTLINT_DB"); db != "" {
		c.Storage.DB = db
	}
	if format := os.Getenv("FACTLINT_FORMAT"); format != "" {
		c.Output.Format = format
	}
	if disabled := os.Getenv("FACTLINT_DISABLE"); disabled != "" {
		for _, id := range strings.Split(disabled, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.Rules.Disabled = append(c.Rules.Disabled, id)
			}
		}
	}
	return nil
}

// Validate checks the values that do not depend on the rule set.
func (c *Config) Validate() error {
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers)
	}
	if !validFormat(c.Output.Format) {
		return fmt.Errorf("output.format %q: want one of %s", c.Output.Format, strings.Join(Formats, ", "))
	}
	if _, err := ir.ParseSeverity(c.Output.MinSeverity); err != nil {
		return fmt.Errorf("output.min_severity: %w", err)
	}
	if _, _, err := c.FailOn(); err != nil {
		return err
	}
	for id, name := range c.Rules.Severity {
		if _, err := ir.ParseSeverity(name); err != nil {
			return fmt.Errorf("rules.severity.%s: %w", id, err)
		}
	}
	return nil
}

// FailOn returns the severity at which a run fails. ok is false for "none".
func (c *Config) FailOn() (sev ir.Severity, ok bool, err error) {
	if strings.EqualFold(c.Output.FailOn, "none") {
		return 0, false, nil
	}
	sev, err = ir.ParseSeverity(c.Output.FailOn)
	if err != nil {
		return 0, false, fmt.Errorf("output.fail_on: %w", err)
	}
	return sev, true, nil
}

// MinSeverity returns the validated output.min_severity.
func (c *Config) MinSeverity() ir.Severity {
	sev, _ := ir.ParseSeverity(c.Output.MinSeverity)
	return sev
}

// RuleSettings converts the rules section for the registry.
func (c *Config) RuleSettings() (rules.Settings, error) {
	return rules.ParseSettings(c.Rules.Disabled, c.Rules.Severity)
}

// ExtractorConfig returns the built-in API tables extended by the config.
func (c *Config) ExtractorConfig() extractor.Config {
	return extractor.DefaultConfig().Merge(c.Extractor)
}

func validFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}
