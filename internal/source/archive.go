package source

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
)

// MaxEntrySize bounds the uncompressed size of one archive entry.
const MaxEntrySize = 64 << 20

// ErrEntryTooLarge is returned for archive entries larger than MaxEntrySize.
var ErrEntryTooLarge = errors.New("archive entry too large")

// Archive serves class files from a jar or zip archive.
type Archive struct {
	entries  map[string]*zip.File
	closer   io.Closer
	maxEntry int64
}

// OpenArchive opens the archive at path. Close releases the file.
func OpenArchive(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	a := newArchive(&rc.Reader)
	a.closer = rc
	return a, nil
}

// NewArchive reads an archive from r.
func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return newArchive(zr), nil
}

func newArchive(zr *zip.Reader) *Archive {
	a := &Archive{entries: make(map[string]*zip.File, len(zr.File)), maxEntry: MaxEntrySize}
	for _, f := range zr.File {
		if name, ok := NameOf(f.Name); ok {
			a.entries[name] = f
		}
	}
	return a
}

func (a *Archive) BytesFor(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, ok := a.entries[name]
	if !ok {
		return nil, notFound(name)
	}
	if f.UncompressedSize64 > uint64(a.maxEntry) {
		return nil, fmt.Errorf("read %s: declared size %d: %w", name, f.UncompressedSize64, ErrEntryTooLarge)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, a.maxEntry+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	// The header size is not trusted.
	if int64(len(b)) > a.maxEntry {
		return nil, fmt.Errorf("read %s: %w", name, ErrEntryTooLarge)
	}
	return b, nil
}

func (a *Archive) Names(context.Context) ([]string, error) {
	names := make([]string, 0, len(a.entries))
	for n := range a.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
