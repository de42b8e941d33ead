package ghostscript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	Device     = "jpeg"
	Resolution = 300
	CanvasSize = "1000x1000"
)

// Input path must come last.
func Args(outputPath, inputPath string) []string {
	return []string{
		"-dSAFER",
		"-dBATCH",
		"-dNOPAUSE",
		"-sDEVICE=" + Device,
		fmt.Sprintf("-r%d", Resolution),
		"-dEPSFitPage",
		"-g" + CanvasSize,
		"-sOutputFile=" + outputPath,
		inputPath,
	}
}

// ExitCode is -1 when the process could not be started.
type ExitError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ghostscript exited with code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("ghostscript exited with code %d: %v", e.ExitCode, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

type Runner struct {
	locator Resolver
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewRunner(locator Resolver) *Runner {
	return &Runner{
		locator: locator,
		command: exec.CommandContext,
	}
}

func (r *Runner) Rasterize(ctx context.Context, inputPath, outputPath string) error {
	path, err := r.locator.Locate(ctx)
	if err != nil {
		return fmt.Errorf("locate interpreter: %w", err)
	}

	var stderr bytes.Buffer
	cmd := r.command(ctx, path, Args(outputPath, inputPath)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &ExitError{
			Path:     path,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return nil
}
