// Package metrics exposes decoder and importer counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nstrack/internal/nst"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	reg *prometheus.Registry

	files       *prometheus.CounterVec   // kind, result
	points      *prometheus.CounterVec   // kind
	corrections *prometheus.CounterVec   // kind
	decodeTime  *prometheus.HistogramVec // kind
}

// Results recorded per decoded file.
const (
	ResultImported  = "imported"
	ResultDuplicate = "duplicate"
	ResultError     = "error"
)

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		files: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nstrack_files_total",
			Help: "SportsTracker files processed, by file kind and result",
		}, []string{"kind", "result"}),
		points: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nstrack_points_total",
			Help: "Trackpoints decoded, by file kind",
		}, []string{"kind"}),
		corrections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nstrack_corrections_total",
			Help: "Trackpoint corrections applied while decoding, by correction",
		}, []string{"correction"}),
		decodeTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nstrack_decode_seconds",
			Help:    "Time spent decoding one file",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"kind"}),
	}
}

// Decoded records a successfully decoded file.
func (m *Metrics) Decoded(f *nst.File, took time.Duration) {
	if m == nil {
		return
	}
	kind := f.Header.Kind.String()
	m.points.WithLabelValues(kind).Add(float64(len(f.Points)))
	m.decodeTime.WithLabelValues(kind).Observe(took.Seconds())
	for name, n := range f.Stats.Counts() {
		m.corrections.WithLabelValues(name).Add(float64(n))
	}
}

// File counts a processed file. kind is "unknown" when the header could not
// be read.
func (m *Metrics) File(kind, result string) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(kind, result).Inc()
}

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
