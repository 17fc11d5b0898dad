package tierclient

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-cachetier/pkg/locator"
	"github.com/dd0wney/cluso-cachetier/pkg/logging"
	"github.com/dd0wney/cluso-cachetier/pkg/metrics"
	"github.com/dd0wney/cluso-cachetier/pkg/secrets"
	"github.com/dd0wney/cluso-cachetier/pkg/topology"
)

// Client owns a cache manager's single shared connection to the clustering
// tier.
//
// Concurrent Safety:
//  1. The published connection lives in an atomic pointer: Connection,
//     Topology and WaitForOrchestrator never block and never take part in
//     the creation lock
//  2. mu serializes InitializeOnce, Recreate and Shutdown. Connection
//     creation blocks on network I/O while holding mu — a deliberate
//     serialization point, since creation is rare and concurrent creators
//     must queue anyway
//  3. Rejoin teardowns run on the terminator pool so a slow tier shutdown
//     never stalls the rejoin caller
type Client struct {
	managerName string
	cfg         *Config // frozen private copy; nil means not clustered
	loc         locator.Locator
	logger      logging.Logger
	metricsReg  *metrics.Registry

	// topo outlives individual connections; its backing source is swapped
	// wholesale on every (re)creation
	topo *topology.CacheTopology

	mu          sync.Mutex // serializes create/recreate/shutdown
	closed      bool
	terminators *terminatorPool // lazily created, guarded by mu

	conn    atomic.Pointer[connectionWrapper]
	created atomic.Bool // whether a connection was ever created
}

// Option customizes a Client at construction
type Option func(*Client)

// WithLocator injects the connection locator. The default is a TierLocator;
// tests inject stubs here instead of patching hidden state.
func WithLocator(loc locator.Locator) Option {
	return func(c *Client) { c.loc = loc }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the metrics registry
func WithMetrics(reg *metrics.Registry) Option {
	return func(c *Client) { c.metricsReg = reg }
}

// New constructs a client for the named cache manager. A nil cfg means the
// manager is not clustered: the client is inert and InitializeOnce reports
// false forever.
//
// When the tier URL embeds credentials and the process-level secret
// provider is configured, New installs the process-wide secret delegate
// before returning. A failure there is fatal: no connection may ever be
// attempted with misconfigured credentials.
func New(managerName string, cfg *Config, opts ...Option) (*Client, error) {
	c := &Client{managerName: managerName}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.DefaultLogger()
	}
	c.logger = c.logger.With(
		logging.Component("tier-client"),
		logging.Manager(managerName),
	)
	if c.metricsReg == nil {
		c.metricsReg = metrics.DefaultRegistry()
	}
	if c.loc == nil {
		c.loc = locator.NewTierLocator(c.logger)
	}
	c.topo = topology.NewCacheTopology(c.metricsReg)

	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		frozen := cfg.clone()
		frozen.applyDefaults()
		c.cfg = frozen

		if frozen.hasCredentialMarker() {
			if providerName := os.Getenv(SecretProviderEnv); providerName != "" {
				if err := secrets.UseAsDelegate(providerName); err != nil {
					return nil, fmt.Errorf("install secret delegate: %w", err)
				}
				c.metricsReg.RecordSecretDelegateRegistration()
				c.logger.Info("secret delegate installed",
					logging.String("provider", providerName))
			}
		}
	}

	return c, nil
}

// InitializeOnce attempts first-time creation of the clustered connection.
// With no clustering configuration it reports false with no side effects.
// Among N concurrent callers exactly one performs the creation and is the
// only one to see true; the rest queue on the creation lock and see false.
func (c *Client) InitializeOnce() (bool, error) {
	if c.cfg == nil {
		return false, nil
	}
	// Fast path: already published
	if c.conn.Load() != nil {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrClientClosed
	}
	if c.conn.Load() != nil {
		return false, nil
	}

	w, err := c.newConnectionLocked()
	if err != nil {
		return false, err
	}
	c.conn.Store(w)
	c.created.Store(true)
	return true, nil
}

// Connection returns the currently published connection, if any. It never
// blocks and never triggers creation.
func (c *Client) Connection() (locator.Connection, bool) {
	w := c.conn.Load()
	if w == nil {
		return nil, false
	}
	return w.raw, true
}

// Topology returns the topology holder. It fails until a connection has
// been created at least once; afterwards the holder stays valid across
// recreations.
func (c *Client) Topology() (*topology.CacheTopology, error) {
	if !c.created.Load() {
		return nil, fmt.Errorf("%w: topology unavailable", ErrNotInitialized)
	}
	return c.topo, nil
}

// Recreate replaces the clustered connection after a rejoin event. The old
// connection's listeners are detached first, its shutdown is handed to the
// terminator pool, and only then is a new connection built and published.
// Between unpublishing the old connection and publishing the new one,
// Connection reports absent — readers never observe a connection that is
// mid-shutdown.
//
// Recreate makes exactly one creation attempt; the retry policy on failure
// belongs to the external rejoin driver.
func (c *Client) Recreate() error {
	if c.cfg == nil {
		return ErrNotClustered
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	if old := c.conn.Swap(nil); old != nil {
		c.logger.Info("rejoin: shutting down previous clustered connection",
			logging.ConnID(old.raw.ID()))
		// Detachment must complete before the old connection goes down
		old.detachListeners()
		c.terminatorLocked().terminate(old)
		c.metricsReg.RecordRejoin()
		c.metricsReg.SetConnected(false)
	}

	w, err := c.newConnectionLocked()
	if err != nil {
		return err
	}
	c.conn.Store(w)
	c.created.Store(true)
	return nil
}

// Shutdown terminally shuts the client down. Idempotent: a second call
// observes the connection already absent and does nothing. After Shutdown,
// InitializeOnce and Recreate fail with ErrClientClosed rather than
// silently resurrecting a connection.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	old := c.conn.Swap(nil)
	if old == nil {
		c.logger.Debug("shutdown: no clustered connection present")
		return nil
	}

	start := time.Now()
	err := old.shutdown()
	c.metricsReg.SetConnected(false)
	c.metricsReg.RecordTeardown(metrics.TeardownTriggerShutdown, time.Since(start))
	c.logger.Info("tier client shut down",
		logging.ConnID(old.raw.ID()),
		logging.Latency(time.Since(start)))

	if err != nil {
		return fmt.Errorf("shut down clustered connection: %w", err)
	}
	return nil
}

// WaitForOrchestrator blocks until the tier signals orchestrator readiness
// for the named cache manager, delegating to the current connection
func (c *Client) WaitForOrchestrator(ctx context.Context, cacheManagerName string) error {
	w := c.conn.Load()
	if w == nil {
		return fmt.Errorf("%w: cannot wait for orchestrator", ErrNotInitialized)
	}
	return w.raw.WaitForOrchestrator(ctx, cacheManagerName)
}

// newConnectionLocked resolves config into a live connection and swaps the
// topology holder's backing source. Callers hold c.mu; the locator call
// blocks on network I/O inside the lock.
func (c *Client) newConnectionLocked() (*connectionWrapper, error) {
	params := locator.Params{
		URL:            c.cfg.URL,
		TopologyURL:    c.cfg.TopologyURL,
		ManagerName:    c.managerName,
		Scope:          c.cfg.Scope,
		ConnectTimeout: time.Duration(c.cfg.ConnectTimeout),
		RequestTimeout: time.Duration(c.cfg.RequestTimeout),
	}

	c.logger.Info("creating clustered connection",
		logging.String("url", locator.StripCredentials(c.cfg.URL)))

	start := time.Now()
	raw, err := c.loc.NewConnection(params)
	if err != nil {
		return nil, fmt.Errorf("connect to clustering tier: %w", err)
	}

	c.topo.SetUnderlying(raw.Topology())
	c.metricsReg.RecordConnectionCreated(time.Since(start))
	c.logger.Info("clustered connection established",
		logging.ConnID(raw.ID()),
		logging.Latency(time.Since(start)))

	return &connectionWrapper{owner: c, raw: raw}, nil
}

// terminatorLocked lazily creates the rejoin terminator pool. Callers hold
// c.mu; the pool is reused for the life of the client.
func (c *Client) terminatorLocked() *terminatorPool {
	if c.terminators == nil {
		c.terminators = newTerminatorPool(
			c.logger.With(logging.Component("rejoin-terminator")),
			c.metricsReg,
		)
	}
	return c.terminators
}
