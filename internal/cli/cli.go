package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/seitarof/classgate/internal/report"
)

// ParseArgs parses command line arguments into Config on top of the
// environment.
func ParseArgs(args []string) (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("classgate", pflag.ContinueOnError)
	fs.StringSliceVarP(&cfg.ClassPath, "classpath", "c", cfg.ClassPath, "comma-separated directories, jars or txtar archives")
	fs.StringSliceVar(&cfg.Exclude, "exclude", cfg.Exclude, "additional name prefixes that are never defined locally")
	fs.StringVarP(&cfg.Format, "format", "f", cfg.Format, "report format: text, json or yaml")
	fs.StringVarP(&cfg.Output, "output", "o", cfg.Output, "report file (default stdout)")
	fs.BoolVar(&cfg.StrictNested, "strict-nested", cfg.StrictNested, "reject types whose nested types are unsafe")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "number of types resolved in parallel")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.BoolVarP(&cfg.ShowVersion, "version", "v", false, "show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}

	cfg.ClassPath = splitCommaList(strings.Join(cfg.ClassPath, ","))
	cfg.Exclude = splitCommaList(strings.Join(cfg.Exclude, ","))
	cfg.Names = splitCommaList(strings.Join(fs.Args(), ","))

	if len(cfg.ClassPath) == 0 {
		return nil, fmt.Errorf("--classpath is required")
	}
	switch cfg.Format {
	case report.FormatText, report.FormatJSON, report.FormatYAML:
	default:
		return nil, fmt.Errorf("--format must be text, json or yaml, got %q", cfg.Format)
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("--concurrency must be at least 1")
	}
	return cfg, nil
}

func splitCommaList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
