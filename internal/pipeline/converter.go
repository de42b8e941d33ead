package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

const JPEGQuality = 95

var ErrEmptyOutput = errors.New("interpreter produced no output")

type Rasterizer interface {
	Rasterize(ctx context.Context, inputPath, outputPath string) error
}

type PostProcessError struct {
	Err error
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("post-process output: %v", e.Err)
}

func (e *PostProcessError) Unwrap() error {
	return e.Err
}

// Result is either Data with a nil Err or a nil Data with Err set.
type Result struct {
	Data   []byte
	Width  int
	Height int
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil && len(r.Data) > 0
}

func failed(err error) Result {
	return Result{Err: err}
}

type Converter struct {
	rasterizer Rasterizer
	normalizer Normalizer
	tempDir    string
	timeout    time.Duration
}

func NewConverter(rasterizer Rasterizer, timeout time.Duration) (*Converter, error) {
	if rasterizer == nil {
		return nil, errors.New("rasterizer is required")
	}

	normalizer, err := newNormalizer()
	if err != nil {
		return nil, fmt.Errorf("build normalizer: %w", err)
	}

	return &Converter{
		rasterizer: rasterizer,
		normalizer: normalizer,
		timeout:    timeout,
	}, nil
}

func (c *Converter) Convert(ctx context.Context, inputPath string) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = failed(&PostProcessError{Err: fmt.Errorf("panic: %v", rec)})
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := os.CreateTemp(c.tempDir, "epsflow-*.jpg")
	if err != nil {
		return failed(fmt.Errorf("create temp output: %w", err))
	}
	outputPath := out.Name()
	_ = out.Close()
	defer os.Remove(outputPath)

	if err := c.rasterizer.Rasterize(ctx, inputPath, outputPath); err != nil {
		return failed(err)
	}

	raw, err := os.ReadFile(outputPath)
	if err != nil {
		return failed(&PostProcessError{Err: fmt.Errorf("read rasterized output: %w", err)})
	}
	if len(raw) == 0 {
		return failed(&PostProcessError{Err: ErrEmptyOutput})
	}

	data, width, height, err := c.normalizer.Normalize(ctx, raw)
	if err != nil {
		return failed(&PostProcessError{Err: err})
	}
	if len(data) == 0 {
		return failed(&PostProcessError{Err: errors.New("encoder produced no bytes")})
	}

	return Result{Data: data, Width: width, Height: height}
}
