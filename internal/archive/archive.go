package archive

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

const (
	FileName    = "converted_images.zip"
	ContentType = "application/zip"
)

var (
	ErrEmptyEntry = errors.New("archive entry has no data")
	ErrClosed     = errors.New("archive already finalized")
)

// A trailing ".eps" is case-sensitive.
func EntryName(uploadName string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(uploadName), `\`, "/"))
	if base == "." || base == "/" {
		base = "converted"
	}
	if strings.HasSuffix(base, ".eps") {
		return strings.TrimSuffix(base, ".eps") + ".jpg"
	}
	return strings.TrimSuffix(base, path.Ext(base)) + ".jpg"
}

type Builder struct {
	buf     bytes.Buffer
	zw      *zip.Writer
	taken   map[string]struct{}
	entries []string
	data    []byte
	closed  bool
	now     func() time.Time
}

func NewBuilder() *Builder {
	b := &Builder{
		taken: make(map[string]struct{}),
		now:   time.Now,
	}
	b.zw = zip.NewWriter(&b.buf)
	return b
}

// Add returns the entry name actually used, suffixed when name is taken.
func (b *Builder) Add(name string, data []byte) (string, error) {
	if b.closed {
		return "", ErrClosed
	}
	if len(data) == 0 {
		return "", ErrEmptyEntry
	}

	entry := b.uniqueName(name)
	w, err := b.zw.CreateHeader(&zip.FileHeader{
		Name:     entry,
		Method:   zip.Store,
		Modified: b.now(),
	})
	if err != nil {
		return "", fmt.Errorf("create archive entry %s: %w", entry, err)
	}
	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("write archive entry %s: %w", entry, err)
	}

	b.taken[entry] = struct{}{}
	b.entries = append(b.entries, entry)
	return entry, nil
}

func (b *Builder) uniqueName(name string) string {
	if _, exists := b.taken[name]; !exists {
		return name
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if _, exists := b.taken[candidate]; !exists {
			return candidate
		}
	}
}

func (b *Builder) Entries() []string {
	out := make([]string, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *Builder) Len() int {
	return len(b.entries)
}

// Bytes finalizes the archive. Later calls return the same bytes.
func (b *Builder) Bytes() ([]byte, error) {
	if b.closed {
		return b.data, nil
	}
	if err := b.zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	b.closed = true
	b.data = b.buf.Bytes()
	return b.data, nil
}
