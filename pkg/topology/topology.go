package topology

// AddListener registers a listener for full-refresh notifications
func (ct *CacheTopology) AddListener(l Listener) {
	if l == nil {
		return
	}

	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.listeners = append(ct.listeners, l)
	ct.updateMetricsLocked()
}

// RemoveListener deregisters a listener. Returns true if it was registered.
func (ct *CacheTopology) RemoveListener(l Listener) bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	for i, registered := range ct.listeners {
		if registered == l {
			ct.listeners = append(ct.listeners[:i], ct.listeners[i+1:]...)
			ct.updateMetricsLocked()
			return true
		}
	}
	return false
}

// RemoveAllListeners detaches every listener and returns how many were
// removed. Callers tearing down a connection must let this complete before
// shutting the backing connection down, so no listener is left attached to
// a destroyed connection.
func (ct *CacheTopology) RemoveAllListeners() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	removed := len(ct.listeners)
	ct.listeners = ct.listeners[:0]
	ct.updateMetricsLocked()
	return removed
}

// ListenerCount returns the number of registered listeners
func (ct *CacheTopology) ListenerCount() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.listeners)
}

// Members returns a defensive copy of the current member set. Empty when no
// backing source has been attached yet.
func (ct *CacheTopology) Members() []Member {
	ct.mu.RLock()
	source := ct.source
	ct.mu.RUnlock()

	if source == nil {
		return nil
	}

	members := source.Members()
	out := make([]Member, len(members))
	copy(out, members)
	return out
}

// HasSource reports whether a backing source is currently attached
func (ct *CacheTopology) HasSource() bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.source != nil
}

// SetUnderlying atomically swaps the backing source and fires one
// full-refresh notification to every registered listener. The member set is
// replaced wholesale; listeners never see incremental diffs.
func (ct *CacheTopology) SetUnderlying(source Source) {
	var members []Member
	if source != nil {
		members = source.Members()
	}

	ct.mu.Lock()
	ct.source = source
	ct.metricsRegistry.UpdateTopologyMetrics(len(members), len(ct.listeners))
	listeners := make([]Listener, len(ct.listeners))
	copy(listeners, ct.listeners)
	ct.mu.Unlock()

	// Notify outside the lock so a slow listener cannot block readers
	for _, l := range listeners {
		snapshot := make([]Member, len(members))
		copy(snapshot, members)
		l.ClusterTopologyChanged(snapshot)
	}
}

func (ct *CacheTopology) updateMetricsLocked() {
	members := 0
	if ct.source != nil {
		members = len(ct.source.Members())
	}
	ct.metricsRegistry.UpdateTopologyMetrics(members, len(ct.listeners))
}
