package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SpecPath    string // YAML template spec document
	ContextPath string // JSON evaluation context
	GlobalsPath string // optional YAML globals bound under $$
	Template    string // spec name within a catalog document

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SpecPath == "" {
		return nil, errors.New("SpecPath is a required configuration field and cannot be empty")
	}
	if cfg.ContextPath == "" {
		return nil, errors.New("ContextPath is a required configuration field and cannot be empty")
	}
	if cfg.Template == "" {
		cfg.Template = "default"
	}
	return &cfg, nil
}
