package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/seitarof/classgate/internal/classfile"
	"github.com/seitarof/classgate/internal/loader"
	"github.com/seitarof/classgate/internal/predicate"
)

type testConfig struct {
	filename string
}

func (c testConfig) OutputFilename() string { return c.filename }

func sampleReport() *Report {
	return NewReport([]Entry{
		EntryFor("org.example.B", &loader.ClassFormatViolation{Name: "org.example.B", Reason: predicate.ReasonNonFinalStatic, Member: "counter"}),
		EntryFor("org.example.A", nil),
		EntryFor("org.example.C", fmt.Errorf("resolve: %w", &classfile.MalformedDescriptorError{Name: "org.example.C", Detail: "bad magic 0x00000000"})),
		EntryFor("org.example.D", &loader.TypeNotFoundError{Name: "org.example.D"}),
		EntryFor("org.example.E", errors.New("disk on fire")),
	})
}

func TestNewReport_SortsAndSummarizes(t *testing.T) {
	r := sampleReport()

	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"org.example.A", "org.example.B", "org.example.C", "org.example.D", "org.example.E"}, names)
	assert.Equal(t, Summary{Total: 5, Admitted: 1, Rejected: 1, Malformed: 1, NotFound: 1, Errors: 1}, r.Summary)
	assert.True(t, r.Summary.Failed())
	assert.False(t, NewReport([]Entry{EntryFor("a.B", nil)}).Summary.Failed())
}

func TestEntryFor(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, Entry{Name: "org.example.B", Status: StatusRejected, Reason: "non-final-static", Member: "counter"}, r.Entries[1])
	assert.Equal(t, Entry{Name: "org.example.C", Status: StatusMalformed, Detail: "bad magic 0x00000000"}, r.Entries[2])
	assert.Equal(t, StatusNotFound, r.Entries[3].Status)
	assert.Equal(t, Entry{Name: "org.example.E", Status: StatusError, Detail: "disk on fire"}, r.Entries[4])
}

func TestTextFormatter(t *testing.T) {
	out, err := NewTextFormatter().Format(sampleReport())
	require.NoError(t, err)

	want := "" +
		"admitted   org.example.A\n" +
		"rejected   org.example.B non-final-static (counter)\n" +
		"malformed  org.example.C: bad magic 0x00000000\n" +
		"not-found  org.example.D\n" +
		"error      org.example.E: disk on fire\n" +
		"5 types: 1 admitted, 1 rejected, 1 malformed, 1 not found, 1 errors\n"
	assert.Equal(t, want, string(out))
}

func TestJSONFormatter(t *testing.T) {
	f, err := NewFormatter(FormatJSON)
	require.NoError(t, err)
	out, err := f.Format(sampleReport())
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, *sampleReport(), got)
	assert.Contains(t, string(out), `"notFound": 1`)
}

func TestYAMLFormatter(t *testing.T) {
	f, err := NewFormatter(FormatYAML)
	require.NoError(t, err)
	out, err := f.Format(sampleReport())
	require.NoError(t, err)

	var got Report
	require.NoError(t, yaml.Unmarshal(out, &got))
	assert.Equal(t, *sampleReport(), got)
	assert.Contains(t, string(out), "status: rejected")
}

func TestNewFormatter_Unknown(t *testing.T) {
	_, err := NewFormatter("xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestReporter_WritesFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "report.txt")
	r := New(NewTextFormatter(), NewFileWriter(nil))

	require.NoError(t, r.Report(testConfig{filename: filename}, sampleReport()))
	b, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(b), "rejected   org.example.B")
}

func TestReporter_Stdout(t *testing.T) {
	var buf bytes.Buffer
	r := New(NewTextFormatter(), NewFileWriter(&buf))

	require.NoError(t, r.Report(testConfig{filename: "-"}, NewReport(nil)))
	assert.Equal(t, "0 types: 0 admitted, 0 rejected, 0 malformed, 0 not found, 0 errors\n", buf.String())
}

type failingFormatter struct{}

func (failingFormatter) Format(*Report) ([]byte, error) { return nil, errors.New("nope") }

func TestReporter_FormatError(t *testing.T) {
	err := New(failingFormatter{}, NewFileWriter(&bytes.Buffer{})).Report(testConfig{}, NewReport(nil))
	assert.ErrorContains(t, err, "format: nope")
}
