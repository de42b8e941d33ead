package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dunamismax/epsflow/internal/archive"
	"github.com/dunamismax/epsflow/internal/batch"
	"github.com/dunamismax/epsflow/internal/domain"
	"github.com/dunamismax/epsflow/internal/ghostscript"
	"github.com/dunamismax/epsflow/internal/id"
	"github.com/dunamismax/epsflow/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	uploadField     = "files"
	multipartMemory = 32 << 20

	HeaderConverted = "X-Epsflow-Converted"
	HeaderFailed    = "X-Epsflow-Failed"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type batchRunner interface {
	ConvertBatch(ctx context.Context, uploads []domain.Upload) (batch.Report, error)
}

type Options struct {
	Theme              Theme
	MaxUploadBytes     int64
	InlineArchiveBytes int64
	PreviewWidth       int
	RateLimiter        RateLimiter
	TrustProxy         bool
	Registry           *prometheus.Registry
	Tracer             trace.Tracer
}

type Server struct {
	logger             *log.Logger
	locator            ghostscript.Resolver
	batcher            batchRunner
	theme              Theme
	maxUploadBytes     int64
	inlineArchiveBytes int64
	previewWidth       int
	rateLimiter        RateLimiter
	trustProxy         bool
	metrics            *metrics
	tracer             trace.Tracer
	templates          *template.Template
	mux                *http.ServeMux
}

func NewServer(logger *log.Logger, locator ghostscript.Resolver, batcher batchRunner, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	if opts.InlineArchiveBytes <= 0 {
		opts.InlineArchiveBytes = 16 << 20
	}
	if opts.Theme == (Theme{}) {
		opts.Theme = DefaultTheme()
	}

	s := &Server{
		logger:             logger,
		locator:            locator,
		batcher:            batcher,
		theme:              opts.Theme,
		maxUploadBytes:     opts.MaxUploadBytes,
		inlineArchiveBytes: opts.InlineArchiveBytes,
		previewWidth:       opts.PreviewWidth,
		rateLimiter:        opts.RateLimiter,
		trustProxy:         opts.TrustProxy,
		metrics:            newMetrics(opts.Registry),
		tracer:             opts.Tracer,
		templates:          pageTemplates,
		mux:                http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.withTracing(s.metrics.withHTTPMetrics(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /convert", s.handleConvert)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
}

type pageData struct {
	Theme       Theme
	Error       string
	MaxUploadMB int64
	Results     []resultView
	Converted   int
	Failed      int
	ArchiveURI  template.URL
	ArchiveName string
	ArchiveSize string
}

type resultView struct {
	Source     string
	Entry      string
	PreviewURI template.URL
	Width      int
	Height     int
	Error      string
}

func (s *Server) page() pageData {
	return pageData{
		Theme:       s.theme,
		MaxUploadMB: s.maxUploadBytes >> 20,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.interpreterReady(w, r) {
		return
	}
	s.render(w, http.StatusOK, "index", s.page())
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if !s.interpreterReady(w, r) {
		return
	}

	uploads, err := s.readUploads(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.logger.Printf("read uploads failed err=%v", err)
		s.fail(w, r, status, "could not read the uploaded files")
		return
	}

	req := domain.BatchRequest{Uploads: uploads}
	if err := req.Validate(); err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	requestID := id.New()
	s.logger.Printf("batch started request_id=%s files=%d bytes=%d", requestID, len(uploads), req.TotalBytes())

	report, err := s.batcher.ConvertBatch(r.Context(), uploads)
	if err != nil {
		s.logger.Printf("batch aborted request_id=%s err=%v", requestID, err)
		s.fail(w, r, http.StatusInternalServerError, "conversion was aborted")
		return
	}
	s.logger.Printf("batch finished request_id=%s converted=%d failed=%d archive_bytes=%d",
		requestID, report.Converted, report.Failed, len(report.Archive))

	if wantsArchive(r) {
		writeArchive(w, report)
		return
	}
	s.render(w, http.StatusOK, "result", s.resultPage(report))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	path, err := s.locator.Locate(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"interpreter": path,
	})
}

func (s *Server) interpreterReady(w http.ResponseWriter, r *http.Request) bool {
	if _, err := s.locator.Locate(r.Context()); err != nil {
		s.metrics.interpreterMissing.Inc()
		if !errors.Is(err, ghostscript.ErrNotFound) {
			s.logger.Printf("locate interpreter failed err=%v", err)
		}
		if wantsArchive(r) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ghostscript not found"})
			return false
		}
		s.render(w, http.StatusServiceUnavailable, "missing", s.page())
		return false
	}
	return true
}

func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]domain.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[uploadField]
	uploads := make([]domain.Upload, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
		}
		uploads = append(uploads, domain.Upload{Name: header.Filename, Data: data})
	}
	return uploads, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) resultPage(report batch.Report) pageData {
	data := s.page()
	data.Converted = report.Converted
	data.Failed = report.Failed
	data.ArchiveName = archive.FileName
	data.ArchiveSize = formatSize(len(report.Archive))
	if int64(len(report.Archive)) <= s.inlineArchiveBytes {
		data.ArchiveURI = dataURI(archive.ContentType, report.Archive)
	}

	data.Results = make([]resultView, 0, len(report.Items))
	for _, item := range report.Items {
		view := resultView{Source: item.Source, Entry: item.Entry, Width: item.Width, Height: item.Height}
		if !item.OK() {
			view.Error = describeFailure(item.Err)
			data.Results = append(data.Results, view)
			continue
		}

		preview, err := pipeline.Preview(item.JPEG, s.previewWidth)
		if err != nil {
			s.logger.Printf("preview failed file=%s err=%v", item.Source, err)
			preview = item.JPEG
		}
		view.PreviewURI = dataURI("image/jpeg", preview)
		data.Results = append(data.Results, view)
	}
	return data
}

func describeFailure(err error) string {
	if err == nil {
		err = pipeline.ErrEmptyOutput
	}
	var exitErr *ghostscript.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Stderr != "" {
			return "Ghostscript error: " + exitErr.Stderr
		}
		return "Ghostscript error: " + exitErr.Error()
	}
	return "Error during conversion: " + err.Error()
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsArchive(r) {
		writeJSON(w, status, map[string]string{"error": message})
		return
	}
	data := s.page()
	data.Error = message
	s.render(w, status, "index", data)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Printf("render failed template=%s err=%v", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func wantsArchive(r *http.Request) bool {
	return r.URL.Query().Get("format") == "zip"
}

func writeArchive(w http.ResponseWriter, report batch.Report) {
	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Archive)))
	w.Header().Set(HeaderConverted, strconv.Itoa(report.Converted))
	w.Header().Set(HeaderFailed, strconv.Itoa(report.Failed))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.Archive)
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func dataURI(contentType string, data []byte) template.URL {
	return template.URL("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
