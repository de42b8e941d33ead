package ghostscript

import (
	"context"
	"errors"
	"testing"
)

func TestDefaultCandidatesWindowsOrder(t *testing.T) {
	candidates := DefaultCandidates("windows")
	if len(candidates) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(candidates))
	}

	want := []string{
		`C:\Program Files\gs\gs*\bin\gswin64c.exe`,
		`C:\Program Files (x86)\gs\gs*\bin\gswin32c.exe`,
		`C:\Program Files\gs\gs*\bin\gswin32c.exe`,
		`C:\Program Files (x86)\gs\gs*\bin\gswin64c.exe`,
	}
	for i, pattern := range want {
		if candidates[i].Kind != KindGlob || candidates[i].Value != pattern {
			t.Fatalf("candidate %d = %+v, want glob %s", i, candidates[i], pattern)
		}
	}
	if last := candidates[4]; last.Kind != KindSearchPath || last.Value != "gswin64c" {
		t.Fatalf("expected search path fallback for gswin64c, got %+v", last)
	}
}

func TestLocateFirstGlobMatchWins(t *testing.T) {
	l := NewLocatorWithCandidates(DefaultCandidates("windows"))
	var probed []string
	l.glob = func(pattern string) ([]string, error) {
		probed = append(probed, pattern)
		if pattern == `C:\Program Files\gs\gs*\bin\gswin32c.exe` {
			return []string{
				`C:\Program Files\gs\gs10.02.1\bin\gswin32c.exe`,
				`C:\Program Files\gs\gs9.56\bin\gswin32c.exe`,
			}, nil
		}
		return nil, nil
	}
	l.where = func(context.Context, string) (string, error) {
		t.Fatal("command index must not be queried when a glob matches")
		return "", nil
	}

	path, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("locate returned error: %v", err)
	}
	if path != `C:\Program Files\gs\gs10.02.1\bin\gswin32c.exe` {
		t.Fatalf("unexpected path %q", path)
	}
	if len(probed) != 3 {
		t.Fatalf("expected probing to stop at the third pattern, probed %d", len(probed))
	}
}

func TestLocateFallsBackToCommandIndex(t *testing.T) {
	l := NewLocatorWithCandidates(DefaultCandidates("windows"))
	l.glob = func(string) ([]string, error) { return nil, nil }
	l.where = func(_ context.Context, name string) (string, error) {
		if name != "gswin64c" {
			t.Fatalf("unexpected command index query %q", name)
		}
		return `D:\tools\gs\bin\gswin64c.exe`, nil
	}

	path, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("locate returned error: %v", err)
	}
	if path != `D:\tools\gs\bin\gswin64c.exe` {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestLocateReturnsErrNotFound(t *testing.T) {
	l := NewLocatorWithCandidates(DefaultCandidates("windows"))
	l.glob = func(string) ([]string, error) { return nil, errors.New("bad pattern") }
	l.where = func(context.Context, string) (string, error) { return "", errors.New("exit status 1") }

	if _, err := l.Locate(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocateNonWindowsReturnsCommandName(t *testing.T) {
	l := NewLocatorWithCandidates(DefaultCandidates("linux"))
	l.glob = func(string) ([]string, error) {
		t.Fatal("glob must not be used off windows")
		return nil, nil
	}

	path, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("locate returned error: %v", err)
	}
	if path != "gs" {
		t.Fatalf("expected gs, got %q", path)
	}
}

func TestLocateHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLocatorWithCandidates(DefaultCandidates("linux"))
	if _, err := l.Locate(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFirstLine(t *testing.T) {
	got := firstLine("\r\nC:\\gs\\bin\\gswin64c.exe\r\nC:\\other\\gswin64c.exe\r\n")
	if got != `C:\gs\bin\gswin64c.exe` {
		t.Fatalf("unexpected first line %q", got)
	}
	if firstLine("") != "" {
		t.Fatal("expected empty first line for empty output")
	}
}

func TestCachedLocatorCachesSuccessOnly(t *testing.T) {
	inner := &countingResolver{errs: []error{ErrNotFound}, path: "/usr/bin/gs"}
	cached := NewCachedLocator(inner)

	if _, err := cached.Locate(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected first call to fail with ErrNotFound, got %v", err)
	}
	for i := 0; i < 3; i++ {
		path, err := cached.Locate(context.Background())
		if err != nil {
			t.Fatalf("locate returned error: %v", err)
		}
		if path != "/usr/bin/gs" {
			t.Fatalf("unexpected path %q", path)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.calls)
	}
}

type countingResolver struct {
	calls int
	errs  []error
	path  string
}

func (r *countingResolver) Locate(context.Context) (string, error) {
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return "", err
	}
	return r.path, nil
}
