package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dunamismax/epsflow/internal/archive"
	"github.com/dunamismax/epsflow/internal/domain"
	"github.com/dunamismax/epsflow/internal/ghostscript"
	"github.com/dunamismax/epsflow/internal/pipeline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Converter interface {
	Convert(ctx context.Context, inputPath string) pipeline.Result
}

type Item struct {
	Source  string
	Entry   string
	JPEG    []byte
	Width   int
	Height  int
	Outcome string
	Err     error
}

func (i Item) OK() bool {
	return i.Err == nil && len(i.JPEG) > 0
}

type Report struct {
	Items     []Item
	Archive   []byte
	Converted int
	Failed    int
}

type Orchestrator struct {
	logger    *log.Logger
	converter Converter
	metrics   *Metrics
	tracer    trace.Tracer
	tempDir   string
}

func NewOrchestrator(logger *log.Logger, converter Converter, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		logger:    logger,
		converter: converter,
		metrics:   metrics,
		tracer:    otel.Tracer("epsflow/batch"),
	}
}

// The returned error is reserved for cancellation and archive finalization.
func (o *Orchestrator) ConvertBatch(ctx context.Context, uploads []domain.Upload) (Report, error) {
	ctx, span := o.tracer.Start(ctx, "batch.convert", trace.WithAttributes(
		attribute.Int("batch.files", len(uploads)),
	))
	defer span.End()

	o.metrics.batchStarted(len(uploads))
	archiveSize := 0
	defer func() { o.metrics.batchFinished(archiveSize) }()

	builder := archive.NewBuilder()
	report := Report{Items: make([]Item, 0, len(uploads))}

	for _, upload := range uploads {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch canceled")
			return Report{}, err
		}

		item := o.convertOne(ctx, upload)
		if item.OK() {
			entry, err := builder.Add(archive.EntryName(upload.Name), item.JPEG)
			if err != nil {
				item.JPEG = nil
				item.Outcome = domain.OutcomePostProcessFailed
				item.Err = fmt.Errorf("add archive entry: %w", err)
			} else {
				item.Entry = entry
			}
		}

		if item.OK() {
			report.Converted++
		} else {
			report.Failed++
			o.logger.Printf("conversion failed file=%s outcome=%s err=%v", upload.Name, item.Outcome, item.Err)
		}
		report.Items = append(report.Items, item)
	}

	data, err := builder.Bytes()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "archive failed")
		return Report{}, err
	}
	report.Archive = data
	archiveSize = len(data)

	span.SetAttributes(
		attribute.Int("batch.converted", report.Converted),
		attribute.Int("batch.failed", report.Failed),
		attribute.Int("batch.archive_bytes", len(data)),
	)
	span.SetStatus(codes.Ok, "converted")
	return report, nil
}

func (o *Orchestrator) convertOne(ctx context.Context, upload domain.Upload) Item {
	startedAt := time.Now()
	ctx, span := o.tracer.Start(ctx, "batch.convert_file", trace.WithAttributes(
		attribute.String("file.name", upload.Name),
		attribute.Int("file.bytes", len(upload.Data)),
	))
	defer span.End()

	item := Item{Source: upload.Name}
	defer func() {
		o.metrics.observeConversion(item.Outcome, time.Since(startedAt), len(upload.Data), len(item.JPEG))
		if item.Err != nil {
			span.RecordError(item.Err)
			span.SetStatus(codes.Error, item.Outcome)
		}
	}()

	inputPath, err := o.writeInput(upload.Data)
	if err != nil {
		item.Outcome = domain.OutcomeInputFailed
		item.Err = err
		return item
	}

	result := o.converter.Convert(ctx, inputPath)
	if err := os.Remove(inputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		o.logger.Printf("temp input cleanup failed path=%s err=%v", inputPath, err)
	}

	if !result.OK() {
		item.Err = result.Err
		if item.Err == nil {
			item.Err = pipeline.ErrEmptyOutput
		}
		item.Outcome = classify(item.Err)
		return item
	}

	item.JPEG = result.Data
	item.Width = result.Width
	item.Height = result.Height
	item.Outcome = domain.OutcomeSucceeded
	return item
}

func (o *Orchestrator) writeInput(data []byte) (string, error) {
	f, err := os.CreateTemp(o.tempDir, "epsflow-*.eps")
	if err != nil {
		return "", fmt.Errorf("create temp input: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp input: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp input: %w", err)
	}
	return path, nil
}

func classify(err error) string {
	var exitErr *ghostscript.ExitError
	switch {
	case errors.As(err, &exitErr),
		errors.Is(err, ghostscript.ErrNotFound),
		errors.Is(err, context.DeadlineExceeded):
		return domain.OutcomeInterpreterFailed
	default:
		return domain.OutcomePostProcessFailed
	}
}
