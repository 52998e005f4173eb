package predicate

import (
	"testing"

	"github.com/seitarof/classgate/internal/classfile/classfiletest"
)

func BenchmarkIsUnsafe(b *testing.B) {
	inputs := classfiletest.All()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, in := range inputs {
			if _, err := IsUnsafe(in); err != nil {
				b.Fatal(err)
			}
		}
	}
}
