package assembler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments assembly runs. A nil *Metrics records nothing.
type Metrics struct {
	filesTotal      *prometheus.CounterVec
	extractDuration prometheus.Histogram
	modules         prometheus.Gauge
	assembliesTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rtlscan_files_total",
				Help: "Number of source units processed, by outcome.",
			},
			[]string{"status"},
		),
		extractDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rtlscan_extract_duration_seconds",
				Help:    "Time taken to extract one source unit.",
				Buckets: prometheus.DefBuckets,
			},
		),
		modules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rtlscan_modules",
				Help: "Number of modules in the last assembled hierarchy.",
			},
		),
		assembliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rtlscan_assemblies_total",
				Help: "Number of hierarchy assemblies, by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.filesTotal, m.extractDuration, m.modules, m.assembliesTotal)
	return m
}

func (m *Metrics) fileProcessed(status string) {
	if m == nil {
		return
	}
	m.filesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) observeExtract(d time.Duration) {
	if m == nil {
		return
	}
	m.extractDuration.Observe(d.Seconds())
}

func (m *Metrics) setModules(n int) {
	if m == nil {
		return
	}
	m.modules.Set(float64(n))
}

func (m *Metrics) assembly(result string) {
	if m == nil {
		return
	}
	m.assembliesTotal.WithLabelValues(result).Inc()
}
