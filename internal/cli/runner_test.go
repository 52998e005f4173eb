package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seitarof/classgate/internal/advice"
	"github.com/seitarof/classgate/internal/classfile/classfiletest"
	"github.com/seitarof/classgate/internal/report"
	"github.com/seitarof/classgate/internal/source"
)

type mockReporter struct {
	callCount int
	last      *report.Report
	err       error
}

func (m *mockReporter) Report(_ report.Config, r *report.Report) error {
	m.callCount++
	m.last = r
	return m.err
}

func writeClasses(t testing.TB, classes map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for name, b := range classes {
		path := filepath.Join(root, filepath.FromSlash(source.ClassPath(name)))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, b, 0o644))
	}
	return root
}

func statuses(r *report.Report) map[string]report.Status {
	out := map[string]report.Status{}
	for _, e := range r.Entries {
		out[e.Name] = e.Status
	}
	return out
}

func newTestRunner(t *testing.T, rep report.Reporter) Runner {
	t.Helper()
	ac := advice.New()
	t.Cleanup(func() { _ = ac.Close() })
	return NewRunner(ac, rep, nil)
}

func TestRunner_Run_ScansWholeClassPath(t *testing.T) {
	classes := classfiletest.All()
	classes["java.lang.Sneaky"] = classfiletest.Plain()
	root := writeClasses(t, classes)

	rep := &mockReporter{}
	got, err := newTestRunner(t, rep).Run(context.Background(), &Config{ClassPath: []string{root}, Concurrency: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.callCount)
	assert.Same(t, got, rep.last)

	assert.Equal(t, map[string]report.Status{
		classfiletest.StaticLiteralNonFinalName: report.StatusRejected,
		classfiletest.StaticFinalNonLiteralName: report.StatusRejected,
		classfiletest.StaticInitBlockName:       report.StatusRejected,
		classfiletest.StaticFinalLiteralName:    report.StatusAdmitted,
		classfiletest.FoldedInitializerName:     report.StatusAdmitted,
		classfiletest.NestedOuterName:           report.StatusAdmitted,
		classfiletest.NestedInnerName:           report.StatusRejected,
		classfiletest.PlainName:                 report.StatusAdmitted,
	}, statuses(got))
	assert.True(t, got.Summary.Failed())
}

func TestRunner_Run_NamedTypes(t *testing.T) {
	root := writeClasses(t, classfiletest.All())

	rep := &mockReporter{}
	got, err := newTestRunner(t, rep).Run(context.Background(), &Config{
		ClassPath:   []string{root},
		Names:       []string{classfiletest.PlainName, "org.example.Missing", "java.lang.String"},
		Concurrency: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]report.Status{
		classfiletest.PlainName: report.StatusAdmitted,
		"org.example.Missing":   report.StatusNotFound,
		"java.lang.String":      report.StatusNotFound,
	}, statuses(got))
}

func TestRunner_Run_StrictNested(t *testing.T) {
	root := writeClasses(t, classfiletest.All())

	got, err := newTestRunner(t, &mockReporter{}).Run(context.Background(), &Config{
		ClassPath:    []string{root},
		Names:        []string{classfiletest.NestedOuterName},
		StrictNested: true,
		Concurrency:  1,
	})
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, report.StatusRejected, got.Entries[0].Status)
	assert.Equal(t, "unsafe-nested-type", got.Entries[0].Reason)
	assert.Equal(t, classfiletest.NestedInnerName, got.Entries[0].Member)
}

func TestRunner_Run_StrictNestedLookupOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		inner  []byte
		status report.Status
	}{
		{name: "missing nested type", inner: nil, status: report.StatusAdmitted},
		{name: "malformed nested type", inner: []byte{0xCA, 0xFE, 0xBA, 0xBE}, status: report.StatusRejected},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			classes := map[string][]byte{classfiletest.NestedOuterName: classfiletest.NestedOuter()}
			if tc.inner != nil {
				classes[classfiletest.NestedInnerName] = tc.inner
			}
			root := writeClasses(t, classes)

			got, err := newTestRunner(t, &mockReporter{}).Run(context.Background(), &Config{
				ClassPath:    []string{root},
				Names:        []string{classfiletest.NestedOuterName},
				StrictNested: true,
				Concurrency:  1,
			})
			require.NoError(t, err)
			require.Len(t, got.Entries, 1)
			assert.Equal(t, tc.status, got.Entries[0].Status)
		})
	}
}

func TestRunner_Run_ReusesAdviceAcrossRuns(t *testing.T) {
	root := writeClasses(t, map[string][]byte{classfiletest.PlainName: classfiletest.Plain()})
	r := newTestRunner(t, &mockReporter{})
	cfg := &Config{ClassPath: []string{root}, Concurrency: 1}

	for i := 0; i < 2; i++ {
		got, err := r.Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.False(t, got.Summary.Failed())
	}
}

func TestRunner_Run_Errors(t *testing.T) {
	_, err := newTestRunner(t, &mockReporter{}).Run(context.Background(), &Config{
		ClassPath:   []string{filepath.Join(t.TempDir(), "missing")},
		Concurrency: 1,
	})
	assert.ErrorContains(t, err, "open classpath")

	root := writeClasses(t, map[string][]byte{classfiletest.PlainName: classfiletest.Plain()})
	boom := errors.New("report failed")
	_, err = newTestRunner(t, &mockReporter{err: boom}).Run(context.Background(), &Config{
		ClassPath:   []string{root},
		Concurrency: 1,
	})
	assert.ErrorIs(t, err, boom)

	ac := advice.New()
	require.NoError(t, ac.Close())
	_, err = NewRunner(ac, &mockReporter{}, nil).Run(context.Background(), &Config{ClassPath: []string{root}, Concurrency: 1})
	assert.ErrorIs(t, err, advice.ErrClosed)
}

func TestRunner_Run_Canceled(t *testing.T) {
	root := writeClasses(t, classfiletest.All())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(t, &mockReporter{}).Run(ctx, &Config{
		ClassPath:   []string{root},
		Names:       []string{classfiletest.PlainName},
		Concurrency: 1,
	})
	assert.ErrorIs(t, err, context.Canceled)
}
