package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config stores options for a single scan run. Environment values are
// loaded first and flags override them.
type Config struct {
	ClassPath    []string `env:"CLASSGATE_CLASSPATH" envSeparator:","`
	Exclude      []string `env:"CLASSGATE_EXCLUDE" envSeparator:","`
	Format       string   `env:"CLASSGATE_FORMAT" envDefault:"text"`
	Output       string   `env:"CLASSGATE_OUTPUT"`
	LogLevel     string   `env:"CLASSGATE_LOG_LEVEL" envDefault:"info"`
	LogEncoding  string   `env:"CLASSGATE_LOG_ENCODING" envDefault:"console"`
	StrictNested bool     `env:"CLASSGATE_STRICT_NESTED"`
	Concurrency  int      `env:"CLASSGATE_CONCURRENCY" envDefault:"4"`

	// Names are the types to check; empty means every type on the classpath.
	Names       []string
	ShowVersion bool
}

// LoadEnv loads configuration from environment variables.
func LoadEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// OutputFilename returns destination file path for report layer.
func (c *Config) OutputFilename() string {
	return c.Output
}
