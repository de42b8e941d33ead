package ghostscript

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("ghostscript interpreter not found")

type Resolver interface {
	Locate(ctx context.Context) (string, error)
}

type CandidateKind string

const (
	KindGlob CandidateKind = "glob"
	KindSearchPath CandidateKind = "search_path"
	KindCommand CandidateKind = "command"
)

type Candidate struct {
	Kind  CandidateKind
	Value string
}

func DefaultCandidates(goos string) []Candidate {
	if goos != "windows" {
		return []Candidate{
			{Kind: KindCommand, Value: "gs"},
		}
	}

	return []Candidate{
		{Kind: KindGlob, Value: `C:\Program Files\gs\gs*\bin\gswin64c.exe`},
		{Kind: KindGlob, Value: `C:\Program Files (x86)\gs\gs*\bin\gswin32c.exe`},
		{Kind: KindGlob, Value: `C:\Program Files\gs\gs*\bin\gswin32c.exe`},
		{Kind: KindGlob, Value: `C:\Program Files (x86)\gs\gs*\bin\gswin64c.exe`},
		{Kind: KindSearchPath, Value: "gswin64c"},
	}
}

type Locator struct {
	candidates []Candidate
	glob       func(pattern string) ([]string, error)
	where      func(ctx context.Context, name string) (string, error)
}

func NewLocator() *Locator {
	return NewLocatorWithCandidates(DefaultCandidates(runtime.GOOS))
}

func NewLocatorWithCandidates(candidates []Candidate) *Locator {
	return &Locator{
		candidates: candidates,
		glob:       filepath.Glob,
		where:      queryCommandIndex,
	}
}

func (l *Locator) Candidates() []Candidate {
	out := make([]Candidate, len(l.candidates))
	copy(out, l.candidates)
	return out
}

func (l *Locator) Locate(ctx context.Context) (string, error) {
	for _, candidate := range l.candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if path, ok := l.resolve(ctx, candidate); ok {
			return path, nil
		}
	}
	return "", ErrNotFound
}

func (l *Locator) resolve(ctx context.Context, candidate Candidate) (string, bool) {
	value := strings.TrimSpace(candidate.Value)
	if value == "" {
		return "", false
	}

	switch candidate.Kind {
	case KindGlob:
		matches, err := l.glob(value)
		if err != nil || len(matches) == 0 {
			return "", false
		}
		return matches[0], true
	case KindSearchPath:
		path, err := l.where(ctx, value)
		if err != nil || strings.TrimSpace(path) == "" {
			return "", false
		}
		return path, true
	case KindCommand:
		return value, true
	default:
		return "", false
	}
}

func queryCommandIndex(ctx context.Context, name string) (string, error) {
	out, err := exec.CommandContext(ctx, "where", name).Output()
	if err != nil {
		return "", fmt.Errorf("where %s: %w", name, err)
	}
	return firstLine(string(out)), nil
}

func firstLine(s string) string {
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}

// CachedLocator caches successes only.
type CachedLocator struct {
	inner Resolver

	mu   sync.Mutex
	path string
}

func NewCachedLocator(inner Resolver) *CachedLocator {
	return &CachedLocator{inner: inner}
}

func (c *CachedLocator) Locate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path != "" {
		return c.path, nil
	}

	path, err := c.inner.Locate(ctx)
	if err != nil {
		return "", err
	}
	c.path = path
	return path, nil
}
