// Package metrics exposes prometheus instrumentation for the cachetier
// client: connection lifecycle, rejoin teardowns, topology state and
// secret-delegate registration.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// TeardownTrigger labels why a connection was torn down
const (
	TeardownTriggerRejoin   = "rejoin"
	TeardownTriggerShutdown = "shutdown"
)

// Registry holds all metrics for the client library
type Registry struct {
	// Client lifecycle metrics
	ClientConnectionsCreatedTotal prometheus.Counter
	ClientConnectionCreateSeconds prometheus.Histogram
	ClientRejoinsTotal            prometheus.Counter
	ClientTeardownsTotal          *prometheus.CounterVec
	ClientTeardownSeconds         prometheus.Histogram
	ClientTeardownsInFlight       prometheus.Gauge
	ClientConnected               prometheus.Gauge
	SecretDelegateRegistrations   prometheus.Counter

	// Topology metrics
	TopologyMembersTotal   prometheus.Gauge
	TopologyListenersTotal prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initClientMetrics()
	r.initTopologyMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
