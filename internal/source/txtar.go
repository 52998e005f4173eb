package source

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/tools/txtar"
)

// Txtar serves class files from a txtar archive. Each file is named by its
// class path ("a/b/C.class") and holds the class bytes hex-encoded;
// whitespace in the payload is ignored.
type Txtar struct {
	entries map[string][]byte
}

// OpenTxtar parses the txtar archive at path.
func OpenTxtar(path string) (*Txtar, error) {
	a, err := txtar.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("open txtar %s: %w", path, err)
	}
	return NewTxtar(a)
}

// NewTxtar decodes every class entry of a eagerly.
func NewTxtar(a *txtar.Archive) (*Txtar, error) {
	t := &Txtar{entries: make(map[string][]byte, len(a.Files))}
	for _, f := range a.Files {
		name, ok := NameOf(f.Name)
		if !ok {
			continue
		}
		b, err := hex.DecodeString(strings.Join(strings.Fields(string(f.Data)), ""))
		if err != nil {
			return nil, fmt.Errorf("decode txtar entry %s: %w", f.Name, err)
		}
		t.entries[name] = b
	}
	return t, nil
}

// FormatTxtar encodes classes keyed by qualified name as a txtar archive
// readable by NewTxtar.
func FormatTxtar(comment string, classes map[string][]byte) []byte {
	names := make([]string, 0, len(classes))
	for n := range classes {
		names = append(names, n)
	}
	sort.Strings(names)

	a := &txtar.Archive{Comment: []byte(comment)}
	for _, n := range names {
		a.Files = append(a.Files, txtar.File{
			Name: ClassPath(n),
			Data: []byte(wrapHex(hex.EncodeToString(classes[n]), 64)),
		})
	}
	return txtar.Format(a)
}

func wrapHex(s string, width int) string {
	var sb strings.Builder
	for len(s) > width {
		sb.WriteString(s[:width])
		sb.WriteByte('\n')
		s = s[width:]
	}
	sb.WriteString(s)
	sb.WriteByte('\n')
	return sb.String()
}

func (t *Txtar) BytesFor(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := t.entries[name]
	if !ok {
		return nil, notFound(name)
	}
	return b, nil
}

func (t *Txtar) Names(context.Context) ([]string, error) {
	names := make([]string, 0, len(t.entries))
	for n := range t.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
