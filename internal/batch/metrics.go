package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	conversionsTotal   *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	activeBatches      prometheus.Gauge
	batchFiles         prometheus.Histogram
	inputBytesTotal    prometheus.Counter
	outputBytesTotal   prometheus.Counter
	archiveBytes       prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		conversionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epsflow_conversions_total",
			Help: "Total single-file conversions by outcome.",
		}, []string{"outcome"}),
		conversionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "epsflow_conversion_duration_seconds",
			Help:    "Wall time of one EPS to JPEG conversion including the interpreter run.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"outcome"}),
		activeBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "epsflow_active_batches",
			Help: "Batches currently being converted.",
		}),
		batchFiles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "epsflow_batch_files",
			Help:    "Number of uploaded files per batch.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		inputBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epsflow_input_bytes_total",
			Help: "Total EPS bytes received for conversion.",
		}),
		outputBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epsflow_output_bytes_total",
			Help: "Total JPEG bytes produced by successful conversions.",
		}),
		archiveBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "epsflow_archive_bytes",
			Help:    "Size of finalized ZIP archives.",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.conversionsTotal,
			m.conversionDuration,
			m.activeBatches,
			m.batchFiles,
			m.inputBytesTotal,
			m.outputBytesTotal,
			m.archiveBytes,
		)
	}
	return m
}

func (m *Metrics) observeConversion(outcome string, took time.Duration, inputBytes, outputBytes int) {
	if m == nil {
		return
	}
	m.conversionsTotal.WithLabelValues(outcome).Inc()
	m.conversionDuration.WithLabelValues(outcome).Observe(took.Seconds())
	m.inputBytesTotal.Add(float64(inputBytes))
	m.outputBytesTotal.Add(float64(outputBytes))
}

func (m *Metrics) batchStarted(files int) {
	if m == nil {
		return
	}
	m.activeBatches.Inc()
	m.batchFiles.Observe(float64(files))
}

func (m *Metrics) batchFinished(archiveBytes int) {
	if m == nil {
		return
	}
	m.activeBatches.Dec()
	if archiveBytes > 0 {
		m.archiveBytes.Observe(float64(archiveBytes))
	}
}
