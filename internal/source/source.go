// Package source supplies raw class-file bytes by qualified type name.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a source cannot supply a name.
var ErrNotFound = errors.New("source: type not found")

const classSuffix = ".class"

// Source supplies class-file bytes.
type Source interface {
	BytesFor(ctx context.Context, name string) ([]byte, error)
}

// Lister is a Source that can enumerate the names it supplies.
type Lister interface {
	Source
	Names(ctx context.Context) ([]string, error)
}

// ClassPath maps a qualified name to its slash-separated entry path,
// e.g. "a.b.C$D" -> "a/b/C$D.class".
func ClassPath(name string) string {
	return strings.ReplaceAll(name, ".", "/") + classSuffix
}

// NameOf is the inverse of ClassPath. ok is false for non-class entries and
// module-info/package-info descriptors.
func NameOf(entry string) (string, bool) {
	entry = filepath.ToSlash(entry)
	if !strings.HasSuffix(entry, classSuffix) {
		return "", false
	}
	base := strings.TrimSuffix(entry, classSuffix)
	if base == "" || strings.HasSuffix(base, "module-info") || strings.HasSuffix(base, "package-info") {
		return "", false
	}
	return strings.ReplaceAll(strings.TrimPrefix(base, "/"), "/", "."), true
}

func notFound(name string) error {
	return fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Open builds a source from one classpath entry: a directory, a .jar/.zip
// archive, or a .txtar archive.
func Open(entry string) (Source, error) {
	switch strings.ToLower(filepath.Ext(entry)) {
	case ".jar", ".zip":
		return OpenArchive(entry)
	case ".txtar":
		return OpenTxtar(entry)
	}
	info, err := os.Stat(entry)
	if err != nil {
		return nil, fmt.Errorf("open classpath entry: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open classpath entry: %s is not a directory or archive", entry)
	}
	return Dir(entry), nil
}

// OpenAll opens every entry and chains them in order.
func OpenAll(entries []string) (Chain, error) {
	chain := make(Chain, 0, len(entries))
	for _, e := range entries {
		src, err := Open(e)
		if err != nil {
			_ = chain.Close()
			return nil, err
		}
		chain = append(chain, src)
	}
	return chain, nil
}

// Map is an in-memory source keyed by qualified name.
type Map map[string][]byte

func (m Map) BytesFor(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := m[name]
	if !ok {
		return nil, notFound(name)
	}
	return b, nil
}

func (m Map) Names(context.Context) ([]string, error) {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Chain tries sources in order. ErrNotFound falls through to the next
// source; any other error stops the search.
type Chain []Source

func (c Chain) BytesFor(ctx context.Context, name string) ([]byte, error) {
	for _, s := range c {
		b, err := s.BytesFor(ctx, name)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, notFound(name)
}

// Names returns the sorted union of names of every Lister in the chain.
func (c Chain) Names(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var names []string
	for _, s := range c {
		l, ok := s.(Lister)
		if !ok {
			continue
		}
		ns, err := l.Names(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range ns {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close closes every source implementing io.Closer.
func (c Chain) Close() error {
	var errs []error
	for _, s := range c {
		if cl, ok := s.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
