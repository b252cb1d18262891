package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emlkit/go-emlspan/span/migrate"
)

// Offset conventions a span corpus may use.
const (
	ConventionCodepoint = "codepoint"
	ConventionUTF16     = "utf16"
)

// Config is the tool configuration, loaded from an optional YAML file.
type Config struct {
	// OffsetConvention says how the corpus's span offsets were recorded.
	// Spans in the utf16 convention are converted before use.
	OffsetConvention string `yaml:"offset_convention"`

	// MinSelectionLen drops suggested spans shorter than this many
	// codepoints.
	MinSelectionLen int `yaml:"min_selection_length"`

	// ContextLen is how many codepoints of surrounding context migration
	// compares when ranking candidate matches.
	ContextLen int `yaml:"context_length"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

func defaultConfig() *Config {
	return &Config{
		OffsetConvention: ConventionCodepoint,
		MinSelectionLen:  2,
		ContextLen:       migrate.DefaultContextLen,
		LogLevel:         "info",
	}
}

// loadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	switch cfg.OffsetConvention {
	case ConventionCodepoint, ConventionUTF16:
	default:
		return nil, fmt.Errorf("unknown offset_convention %q", cfg.OffsetConvention)
	}
	return cfg, nil
}
