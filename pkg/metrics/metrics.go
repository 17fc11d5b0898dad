package metrics

import (
	"time"
)

// RecordConnectionCreated records a successful clustered connection creation
func (r *Registry) RecordConnectionCreated(duration time.Duration) {
	r.ClientConnectionsCreatedTotal.Inc()
	r.ClientConnectionCreateSeconds.Observe(duration.Seconds())
	r.ClientConnected.Set(1)
}

// RecordRejoin records a rejoin event replacing the clustered connection
func (r *Registry) RecordRejoin() {
	r.ClientRejoinsTotal.Inc()
}

// RecordTeardown records a completed connection teardown
func (r *Registry) RecordTeardown(trigger string, duration time.Duration) {
	r.ClientTeardownsTotal.WithLabelValues(trigger).Inc()
	r.ClientTeardownSeconds.Observe(duration.Seconds())
}

// SetConnected updates the connection-published gauge
func (r *Registry) SetConnected(connected bool) {
	if connected {
		r.ClientConnected.Set(1)
	} else {
		r.ClientConnected.Set(0)
	}
}

// UpdateTopologyMetrics updates topology-related gauges
func (r *Registry) UpdateTopologyMetrics(members, listeners int) {
	r.TopologyMembersTotal.Set(float64(members))
	r.TopologyListenersTotal.Set(float64(listeners))
}

// RecordSecretDelegateRegistration records a process-wide delegate install
func (r *Registry) RecordSecretDelegateRegistration() {
	r.SecretDelegateRegistrations.Inc()
}
