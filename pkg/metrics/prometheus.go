package metrics

import (
	"ChartSense/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	framesTotal    *prometheus.CounterVec
	signalsTotal   *prometheus.CounterVec
	overlaysTotal  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	tierFallbacks  *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

// New creates a recorder registered on reg. A nil reg uses the default
// Prometheus registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		framesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsense_frames_total",
				Help: "Frames handled, by result",
			},
			[]string{"result"},
		),
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsense_signals_total",
				Help: "Signals forwarded to clients after tier gating",
			},
			[]string{"side", "tier"},
		),
		overlaysTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsense_overlays_sent_total",
				Help: "Overlay messages sent, by action",
			},
			[]string{"action"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsense_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		tierFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsense_tier_fallbacks_total",
				Help: "Tier lookups that fell back to free",
			},
			[]string{"reason"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartsense_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"stage"},
		),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "chartsense_active_sessions",
			Help: "Open streaming connections",
		}),
	}
}

func (r *Recorder) RecordFrame(result string) {
	r.framesTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordSignal(side models.Side, tier models.Tier) {
	r.signalsTotal.WithLabelValues(string(side), string(tier)).Inc()
}

func (r *Recorder) RecordOverlay(action string) {
	r.overlaysTotal.WithLabelValues(action).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordTierFallback(reason string) {
	r.tierFallbacks.WithLabelValues(reason).Inc()
}

// RecordLatency records stage latency in seconds.
func (r *Recorder) RecordLatency(stage string, seconds float64) {
	r.latency.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) SessionOpened() { r.activeSessions.Inc() }

func (r *Recorder) SessionClosed() { r.activeSessions.Dec() }

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordFrame(string)                    {}
func (Nop) RecordSignal(models.Side, models.Tier) {}
func (Nop) RecordOverlay(string)                  {}
func (Nop) RecordError(string)                    {}
func (Nop) RecordTierFallback(string)             {}
func (Nop) RecordLatency(string, float64)         {}
func (Nop) SessionOpened()                        {}
func (Nop) SessionClosed()                        {}
