package pipeline

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/policy"
)

// metrics counts one run. Each run has its own registry so that repeated
// runs in one process never share counters.
type metrics struct {
	registry   *prometheus.Registry
	files      *prometheus.CounterVec
	entries    prometheus.Counter
	duplicates prometheus.Counter
	warnings   *prometheus.CounterVec
	violations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esi_codegen_files_total",
			Help: "ESI files processed, by outcome.",
		}, []string{"status"}),
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esi_codegen_entries_total",
			Help: "Object dictionary entries kept after deduplication.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esi_codegen_duplicates_dropped_total",
			Help: "Entries dropped because their (index, subindex) pair was already taken.",
		}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esi_codegen_warnings_total",
			Help: "Resolution warnings, by kind.",
		}, []string{"kind"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esi_codegen_lint_violations_total",
			Help: "Lint violations, by severity.",
		}, []string{"severity"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "esi_codegen_file_duration_seconds",
			Help:    "Wall time spent on one input file.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"status"}),
	}
	m.registry.MustRegister(m.files, m.entries, m.duplicates, m.warnings, m.violations, m.duration)
	return m
}

func (m *metrics) observe(res *FileResult) {
	status := "ok"
	switch {
	case res.Err != nil:
		status = "failed"
	case res.CacheHit:
		status = "cache_hit"
	}
	m.files.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(res.Duration.Seconds())
	if res.Err != nil {
		return
	}
	m.entries.Add(float64(len(res.Records)))
	for _, w := range res.Warnings {
		m.warnings.WithLabelValues(w.Kind.String()).Inc()
		if w.Kind == diag.DuplicateEntry {
			m.duplicates.Inc()
		}
	}
	if res.Lint != nil {
		for _, v := range res.Lint.Violations {
			m.violations.WithLabelValues(v.Severity).Inc()
		}
	}
}

func (m *metrics) write(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// severities are pre-seeded so that a clean run still reports zero counts.
func (m *metrics) seed() {
	for _, s := range []string{policy.SeverityError, policy.SeverityWarning, policy.SeverityInfo} {
		m.violations.WithLabelValues(s)
	}
	for _, k := range []diag.WarningKind{diag.DuplicateEntry, diag.NameShortfall} {
		m.warnings.WithLabelValues(k.String())
	}
}
