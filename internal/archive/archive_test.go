package archive

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestEntryName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "a.eps", want: "a.jpg"},
		{in: "logo.final.eps", want: "logo.final.jpg"},
		{in: "eps.eps", want: "eps.jpg"},
		{in: "Upper.EPS", want: "Upper.jpg"},
		{in: "noext", want: "noext.jpg"},
		{in: "folder/x.eps", want: "x.jpg"},
		{in: `C:\art\x.eps`, want: "x.jpg"},
		{in: "", want: "converted.jpg"},
	}

	for _, tt := range tests {
		if got := EntryName(tt.in); got != tt.want {
			t.Errorf("EntryName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuilderWritesEntries(t *testing.T) {
	b := NewBuilder()
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if _, err := b.Add(name, []byte("data-"+name)); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	files := readZip(t, b)
	if len(files) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(files))
	}
	if files["b.jpg"] != "data-b.jpg" {
		t.Fatalf("unexpected content for b.jpg: %q", files["b.jpg"])
	}
}

func TestBuilderDisambiguatesCollisions(t *testing.T) {
	b := NewBuilder()
	first, _ := b.Add("x.jpg", []byte("first"))
	second, _ := b.Add("x.jpg", []byte("second"))
	third, _ := b.Add("x.jpg", []byte("third"))

	if first != "x.jpg" || second != "x-2.jpg" || third != "x-3.jpg" {
		t.Fatalf("unexpected names %q %q %q", first, second, third)
	}

	files := readZip(t, b)
	if files["x.jpg"] != "first" || files["x-2.jpg"] != "second" || files["x-3.jpg"] != "third" {
		t.Fatalf("unexpected archive contents %v", files)
	}
}

func TestBuilderSkipsTakenSuffix(t *testing.T) {
	b := NewBuilder()
	_, _ = b.Add("x-2.jpg", []byte("explicit"))
	_, _ = b.Add("x.jpg", []byte("one"))
	got, _ := b.Add("x.jpg", []byte("two"))
	if got != "x-3.jpg" {
		t.Fatalf("expected x-3.jpg, got %q", got)
	}
}

func TestBuilderRejectsEmptyData(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Add("a.jpg", nil); !errors.Is(err, ErrEmptyEntry) {
		t.Fatalf("expected ErrEmptyEntry, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected no entries, got %d", b.Len())
	}
}

func TestBuilderEmptyArchiveIsValid(t *testing.T) {
	if files := readZip(t, NewBuilder()); len(files) != 0 {
		t.Fatalf("expected empty archive, got %v", files)
	}
}

func TestBuilderClosedAfterBytes(t *testing.T) {
	b := NewBuilder()
	first, err := b.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	again, _ := b.Bytes()
	if !bytes.Equal(first, again) {
		t.Fatal("expected stable bytes after finalize")
	}
	if _, err := b.Add("late.jpg", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func readZip(t *testing.T, b *Builder) map[string]string {
	t.Helper()

	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("finalize archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}

	files := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		files[f.Name] = string(body)
	}
	return files
}
