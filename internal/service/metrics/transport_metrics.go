package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	FrameBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chartsense",
			Subsystem: "ws",
			Name:      "frame_bytes",
			Help:      "Size of inbound frame payloads",
			Buckets:   prometheus.ExponentialBuckets(4096, 2, 12),
		},
	)

	AdmissionRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chartsense",
			Subsystem: "ws",
			Name:      "admission_rejected_total",
			Help:      "Connection attempts rejected by the rate limiter",
		},
	)

	Disconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartsense",
			Subsystem: "ws",
			Name:      "disconnects_total",
			Help:      "Closed streaming connections, by final state",
		},
		[]string{"state"},
	)
)

// Register adds the transport collectors to reg once per process.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(FrameBytes, AdmissionRejected, Disconnects)
	})
}
