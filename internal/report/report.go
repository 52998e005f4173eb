// Package report renders and writes scan results.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.txt.tmpl
var templateFS embed.FS

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Reporter formats a report and writes it.
type Reporter interface {
	Report(cfg Config, r *Report) error
}

// Config is the minimum config contract required by reporter.
// An empty or "-" filename means standard output.
type Config interface {
	OutputFilename() string
}

// Formatter renders a report.
type Formatter interface {
	Format(r *Report) ([]byte, error)
}

// FileWriter writes rendered output.
type FileWriter interface {
	Write(filename string, data []byte) error
}

type reporterImpl struct {
	formatter Formatter
	writer    FileWriter
}

type textFormatter struct {
	tmpl *template.Template
}

type jsonFormatter struct{}

type yamlFormatter struct{}

type fileWriter struct {
	stdout io.Writer
}

// New creates a reporter.
func New(f Formatter, w FileWriter) Reporter {
	return &reporterImpl{formatter: f, writer: w}
}

// NewFormatter returns the formatter for format.
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(), nil
	case FormatJSON:
		return &jsonFormatter{}, nil
	case FormatYAML:
		return &yamlFormatter{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want text, json or yaml)", format)
}

// NewTextFormatter creates the template-backed text formatter.
func NewTextFormatter() Formatter {
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.txt.tmpl"))
	return &textFormatter{tmpl: tmpl}
}

// NewFileWriter creates a writer; "-" and "" go to stdout.
func NewFileWriter(stdout io.Writer) FileWriter {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &fileWriter{stdout: stdout}
}

func (g *reporterImpl) Report(cfg Config, r *Report) error {
	out, err := g.formatter.Format(r)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if err := g.writer.Write(cfg.OutputFilename(), out); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (f *textFormatter) Format(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.tmpl.ExecuteTemplate(&buf, "report.txt.tmpl", r); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *jsonFormatter) Format(r *Report) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (f *yamlFormatter) Format(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *fileWriter) Write(filename string, data []byte) error {
	if filename == "" || filename == "-" {
		_, err := w.stdout.Write(data)
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}
