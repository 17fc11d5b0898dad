package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initClientMetrics() {
	r.ClientConnectionsCreatedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cachetier_client_connections_created_total",
			Help: "Total number of clustered connections created",
		},
	)

	r.ClientConnectionCreateSeconds = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cachetier_client_connection_create_seconds",
			Help:    "Time spent establishing a clustered connection",
			Buckets: []float64{0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
	)

	r.ClientRejoinsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cachetier_client_rejoins_total",
			Help: "Total number of rejoin events that replaced the clustered connection",
		},
	)

	r.ClientTeardownsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachetier_client_teardowns_total",
			Help: "Total number of connection teardowns",
		},
		[]string{"trigger"}, // rejoin, shutdown
	)

	r.ClientTeardownSeconds = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cachetier_client_teardown_seconds",
			Help:    "Time spent shutting down a clustered connection",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
	)

	r.ClientTeardownsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cachetier_client_teardowns_in_flight",
			Help: "Number of asynchronous connection teardowns currently running",
		},
	)

	r.ClientConnected = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cachetier_client_connected",
			Help: "Whether a clustered connection is currently published (1=yes, 0=no)",
		},
	)

	r.SecretDelegateRegistrations = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cachetier_secret_delegate_registrations_total",
			Help: "Total number of process-wide secret delegate registrations",
		},
	)
}
