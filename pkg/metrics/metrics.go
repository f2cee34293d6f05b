package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricMountState              = "sidemount_mount_state"
	metricProbeFailures           = "sidemount_probe_failures_total"
	metricMetadataConnectAttempts = "sidemount_metadata_connect_attempts_total"
	metricMountWaitDuration       = "sidemount_mount_wait_duration_seconds"
)

type Registry struct {
	registrar *prometheus.Registry

	mountState              prometheus.Gauge
	probeFailures           prometheus.Counter
	metadataConnectAttempts prometheus.Counter
	mountWaitDuration       prometheus.Histogram
}

func NewRegistry() *Registry {
	registrar := prometheus.NewRegistry()
	registrar.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		registrar: registrar,
		mountState: promauto.With(registrar).NewGauge(prometheus.GaugeOpts{
			Name: metricMountState,
			Help: "Current mount lifecycle state (0=unmounted, 1=in progress, 2=mounted, 3=failed).",
		}),
		probeFailures: promauto.With(registrar).NewCounter(prometheus.CounterOpts{
			Name: metricProbeFailures,
			Help: "Total failed filesystem probe cycles.",
		}),
		metadataConnectAttempts: promauto.With(registrar).NewCounter(prometheus.CounterOpts{
			Name: metricMetadataConnectAttempts,
			Help: "Total connection attempts against the metadata store.",
		}),
		mountWaitDuration: promauto.With(registrar).NewHistogram(prometheus.HistogramOpts{
			Name:    metricMountWaitDuration,
			Help:    "Time spent waiting for the shared path to become a mount point.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (r *Registry) Registrar() *prometheus.Registry {
	return r.registrar
}

func (r *Registry) SetMountState(state int) {
	r.mountState.Set(float64(state))
}

func (r *Registry) RecordProbeFailure() {
	r.probeFailures.Inc()
}

func (r *Registry) RecordMetadataConnectAttempt() {
	r.metadataConnectAttempts.Inc()
}

func (r *Registry) RecordMountWait(duration time.Duration) {
	r.mountWaitDuration.Observe(duration.Seconds())
}
