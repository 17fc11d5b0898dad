// Package topology tracks the member-node view of the clustering tier and
// fans out wholesale refresh notifications to registered listeners.
//
// The CacheTopology holder outlives any single clustered connection: on a
// rejoin the backing source is swapped wholesale and listeners receive one
// full-refresh callback rather than incremental add/remove events.
package topology

import (
	"sync"

	"github.com/dd0wney/cluso-cachetier/pkg/metrics"
)

// Member describes one node of the clustering tier
type Member struct {
	ID      string // Unique node identifier
	Addr    string // Network address (host:port)
	Healthy bool   // Whether the tier currently reports the node healthy
}

// Source is the raw membership view backing a CacheTopology. A clustered
// connection exposes one; it is replaced wholesale on reconnection.
type Source interface {
	// Members returns a snapshot of the current member set
	Members() []Member
}

// Listener receives wholesale topology refreshes. The callback carries the
// complete new member set, not a diff against the previous one.
type Listener interface {
	ClusterTopologyChanged(members []Member)
}

// CacheTopology holds the current member view and the listener registry
//
// Concurrent Safety:
// 1. All public methods use RWMutex for thread-safe access
// 2. Read operations (Members, ListenerCount) use RLock for concurrent reads
// 3. Listener notification copies the listener slice and calls outside the
//    lock so a slow listener cannot block readers
type CacheTopology struct {
	mu              sync.RWMutex
	source          Source
	listeners       []Listener
	metricsRegistry *metrics.Registry
}

// NewCacheTopology creates an empty topology holder. A nil registry falls
// back to the process default.
func NewCacheTopology(metricsRegistry *metrics.Registry) *CacheTopology {
	if metricsRegistry == nil {
		metricsRegistry = metrics.DefaultRegistry()
	}
	return &CacheTopology{
		listeners:       make([]Listener, 0),
		metricsRegistry: metricsRegistry,
	}
}
