package cli

import (
	"context"
	"io"
	"testing"

	"github.com/seitarof/classgate/internal/advice"
	"github.com/seitarof/classgate/internal/classfile/classfiletest"
	"github.com/seitarof/classgate/internal/report"
)

func BenchmarkRunnerRun_EndToEnd(b *testing.B) {
	root := writeClasses(b, classfiletest.All())

	ac := advice.New()
	defer ac.Close()
	runner := NewRunner(ac, report.New(report.NewTextFormatter(), report.NewFileWriter(io.Discard)), nil)
	cfg := &Config{ClassPath: []string{root}, Concurrency: 4}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := runner.Run(context.Background(), cfg); err != nil {
			b.Fatal(err)
		}
	}
}
