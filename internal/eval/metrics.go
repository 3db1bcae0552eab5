package eval

import (
	"time"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/score"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters of one runner, kept on a private registry so
// concurrent runners and tests never share state.
type Metrics struct {
	registry *prometheus.Registry

	documentsTotal *prometheus.CounterVec
	pagesTotal     *prometheus.CounterVec
	failuresTotal  *prometheus.CounterVec
	coverage       *prometheus.HistogramVec
	stageDuration  *prometheus.HistogramVec
}

// NewMetrics registers the evaluation metrics on a new registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		documentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocreval_documents_total",
				Help: "Documents evaluated, by comparison mode and outcome",
			},
			[]string{"mode", "status"}, // status: ok, failed, cancelled
		),
		pagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocreval_pages_total",
				Help: "Pages extracted, by run configuration and page status",
			},
			[]string{"config", "status"},
		),
		failuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocreval_failures_total",
				Help: "Recorded failures by kind",
			},
			[]string{"kind"},
		),
		coverage: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocreval_document_coverage_ratio",
				Help:    "Document coverage against the reference",
				Buckets: []float64{0, .1, .25, .5, .75, .9, .95, .99, 1},
			},
			[]string{"granularity"}, // char, word
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocreval_stage_duration_seconds",
				Help:    "Time spent per pipeline stage and document",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"}, // normalize, extract, score
		),
	}
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observePages(doc *document.Document) {
	cfg := doc.Config.String()
	for _, p := range doc.Pages {
		m.pagesTotal.WithLabelValues(cfg, string(p.Status)).Inc()
	}
}

func (m *Metrics) observeResult(res score.ComparisonResult) {
	status := "ok"
	switch {
	case res.HasFailure(document.KindCancelled):
		status = "cancelled"
	case res.Failed():
		status = "failed"
	}
	m.documentsTotal.WithLabelValues(string(res.Mode), status).Inc()
	for _, f := range res.Failures {
		m.failuresTotal.WithLabelValues(string(f.Kind)).Inc()
	}
	if res.Coverage.Char.Defined {
		m.coverage.WithLabelValues("char").Observe(res.Coverage.Char.Value)
	}
	if res.Coverage.Word.Defined {
		m.coverage.WithLabelValues("word").Observe(res.Coverage.Word.Value)
	}
}
