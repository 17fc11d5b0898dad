package tierclient

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-cachetier/pkg/logging"
	"github.com/dd0wney/cluso-cachetier/pkg/metrics"
)

// terminatorPool tears down replaced connections off the rejoin caller's
// thread. Workers are fire-and-forget: nothing waits for them at process
// exit, so a slow or hung tier shutdown can never stall a rejoin or keep
// the process alive.
type terminatorPool struct {
	logger     logging.Logger
	metricsReg *metrics.Registry

	// wg exists for tests that need to observe teardown completion;
	// production code never waits on it
	wg sync.WaitGroup
}

func newTerminatorPool(logger logging.Logger, metricsReg *metrics.Registry) *terminatorPool {
	return &terminatorPool{
		logger:     logger,
		metricsReg: metricsReg,
	}
}

// terminate shuts the wrapped connection down on a dedicated worker.
// Returns immediately. A panic from the external shutdown path is recovered
// and logged — teardown must never take the process down.
func (p *terminatorPool) terminate(w *connectionWrapper) {
	p.wg.Add(1)
	p.metricsReg.ClientTeardownsInFlight.Inc()

	go func() {
		defer p.wg.Done()
		defer p.metricsReg.ClientTeardownsInFlight.Dec()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("panic during connection teardown",
					logging.Any("panic", r),
					logging.ConnID(w.raw.ID()))
			}
		}()

		start := time.Now()
		if err := w.shutdown(); err != nil {
			p.logger.Warn("connection teardown failed",
				logging.Error(err),
				logging.ConnID(w.raw.ID()))
		} else {
			p.logger.Info("old connection torn down",
				logging.ConnID(w.raw.ID()),
				logging.Latency(time.Since(start)))
		}
		p.metricsReg.RecordTeardown(metrics.TeardownTriggerRejoin, time.Since(start))
	}()
}

// wait blocks until in-flight teardowns finish. Tests only.
func (p *terminatorPool) wait() {
	p.wg.Wait()
}
