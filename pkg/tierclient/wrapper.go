package tierclient

import (
	"sync"

	"github.com/dd0wney/cluso-cachetier/pkg/locator"
	"github.com/dd0wney/cluso-cachetier/pkg/logging"
)

// connectionWrapper pairs a raw tier connection with its owning client.
// The back-reference exists only to sequence listener detachment ahead of
// the raw shutdown; it is never used for shared mutation.
type connectionWrapper struct {
	owner *Client
	raw   locator.Connection

	detachOnce   sync.Once
	shutdownOnce sync.Once
	shutdownErr  error
}

// detachListeners removes every topology listener exactly once. It must
// run to completion before the raw connection is shut down so no listener
// is left attached to a destroyed connection.
func (w *connectionWrapper) detachListeners() {
	w.detachOnce.Do(func() {
		removed := w.owner.topo.RemoveAllListeners()
		w.owner.logger.Debug("topology listeners detached",
			logging.Count(removed),
			logging.ConnID(w.raw.ID()))
	})
}

// shutdown detaches listeners, then shuts the raw connection down. Both
// steps run at most once regardless of how many paths reach them.
func (w *connectionWrapper) shutdown() error {
	w.detachListeners()
	w.shutdownOnce.Do(func() {
		w.shutdownErr = w.raw.Shutdown()
	})
	return w.shutdownErr
}
