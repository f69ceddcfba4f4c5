package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the Prometheus instrument set for the dispatch controller.
type Metrics struct {
	Registry *prometheus.Registry

	Enqueued        *prometheus.CounterVec
	Dequeued        *prometheus.CounterVec
	Evicted         *prometheus.CounterVec
	Rejected        *prometheus.CounterVec
	Violations      *prometheus.CounterVec
	DispatchLatency *prometheus.HistogramVec
	QueueDepth      prometheus.Gauge
	SystemMode      prometheus.Gauge
	BandSwitches    *prometheus.CounterVec
}

// NewMetrics builds the instrument set on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Enqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdc_messages_enqueued_total",
			Help: "Messages admitted to the priority queue.",
		}, []string{"priority"}),
		Dequeued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdc_messages_dequeued_total",
			Help: "Messages drained for dispatch.",
		}, []string{"priority"}),
		Evicted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdc_messages_evicted_total",
			Help: "Messages displaced by higher-priority arrivals.",
		}, []string{"priority"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdc_messages_rejected_total",
			Help: "Messages refused before enqueue.",
		}, []string{"reason"}),
		Violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdc_timing_violations_total",
			Help: "Executions that exceeded their tier latency contract.",
		}, []string{"priority"}),
		DispatchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mdc_dispatch_latency_seconds",
			Help:    "Measured execution latency per dispatched command.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"priority"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mdc_queue_depth",
			Help: "Current priority queue occupancy.",
		}),
		SystemMode: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mdc_system_mode",
			Help: "Operating mode (0 nominal, 1 safe, 2 emergency).",
		}),
		BandSwitches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdc_band_switches_total",
			Help: "Completed band switches by target band.",
		}, []string{"band"}),
	}
}
