package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTopologyMetrics() {
	r.TopologyMembersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cachetier_topology_members_total",
			Help: "Number of member nodes in the current cluster topology",
		},
	)

	r.TopologyListenersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cachetier_topology_listeners_total",
			Help: "Number of registered topology listeners",
		},
	)
}
