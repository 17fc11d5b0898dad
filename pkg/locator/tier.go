package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/req"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports (tcp, inproc, ipc, ws)
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-cachetier/pkg/logging"
	"github.com/dd0wney/cluso-cachetier/pkg/topology"
)

const (
	// DefaultConnectTimeout bounds dial + handshake when Params doesn't
	DefaultConnectTimeout = 10 * time.Second

	// DefaultRequestTimeout bounds control requests when Params doesn't
	DefaultRequestTimeout = 5 * time.Second

	// orchestratorPollInterval paces readiness polling between requests
	orchestratorPollInterval = 500 * time.Millisecond
)

// TierLocator is the default Locator. It dials the tier's control endpoint
// over an NNG req/rep socket, performs the hello/welcome handshake, and
// optionally subscribes to the topology refresh stream.
type TierLocator struct {
	logger logging.Logger
}

// NewTierLocator creates a locator. A nil logger falls back to the default.
func NewTierLocator(logger logging.Logger) *TierLocator {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &TierLocator{
		logger: logger.With(logging.Component("tier-locator")),
	}
}

// NewConnection makes exactly one connection attempt to the tier
func (l *TierLocator) NewConnection(p Params) (Connection, error) {
	if p.URL == "" {
		return nil, ErrMissingURL
	}

	connectTimeout := p.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	requestTimeout := p.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	reqSock, err := req.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("create control socket: %w", err)
	}
	if err := reqSock.SetOption(mangos.OptionSendDeadline, connectTimeout); err != nil {
		reqSock.Close()
		return nil, fmt.Errorf("set send deadline: %w", err)
	}
	if err := reqSock.SetOption(mangos.OptionRecvDeadline, connectTimeout); err != nil {
		reqSock.Close()
		return nil, fmt.Errorf("set receive deadline: %w", err)
	}

	controlAddr := StripCredentials(p.URL)
	if err := reqSock.Dial(controlAddr); err != nil {
		reqSock.Close()
		return nil, fmt.Errorf("dial tier at %s: %w", controlAddr, err)
	}

	clientID := uuid.NewString()
	hello := helloRequest{
		ClientID:    clientID,
		ManagerName: p.ManagerName,
		Scope:       p.Scope,
		Version:     protocolVersion,
	}

	var welcome welcomeResponse
	if err := roundTrip(reqSock, msgHello, hello, msgWelcome, &welcome); err != nil {
		reqSock.Close()
		return nil, fmt.Errorf("handshake with %s: %w", controlAddr, err)
	}
	if !welcome.Accepted {
		reqSock.Close()
		return nil, fmt.Errorf("%w: %s", ErrHandshakeRejected, welcome.ErrorMessage)
	}

	// Handshake done; subsequent control requests use the shorter timeout
	if err := reqSock.SetOption(mangos.OptionSendDeadline, requestTimeout); err != nil {
		reqSock.Close()
		return nil, fmt.Errorf("set send deadline: %w", err)
	}
	if err := reqSock.SetOption(mangos.OptionRecvDeadline, requestTimeout); err != nil {
		reqSock.Close()
		return nil, fmt.Errorf("set receive deadline: %w", err)
	}

	conn := &tierConnection{
		id:          clientID,
		managerName: p.ManagerName,
		logger:      l.logger.With(logging.ConnID(clientID), logging.Manager(p.ManagerName)),
		reqSock:     reqSock,
		members:     newMemberSet(welcome.Members),
		stopCh:      make(chan struct{}),
	}

	if p.TopologyURL != "" {
		subSock, err := sub.NewSocket()
		if err != nil {
			reqSock.Close()
			return nil, fmt.Errorf("create topology socket: %w", err)
		}
		if err := subSock.SetOption(mangos.OptionSubscribe, []byte{}); err != nil {
			subSock.Close()
			reqSock.Close()
			return nil, fmt.Errorf("subscribe topology stream: %w", err)
		}
		topoAddr := StripCredentials(p.TopologyURL)
		if err := subSock.Dial(topoAddr); err != nil {
			subSock.Close()
			reqSock.Close()
			return nil, fmt.Errorf("dial topology stream at %s: %w", topoAddr, err)
		}
		conn.subSock = subSock
		conn.wg.Add(1)
		go conn.watchTopology()
	}

	conn.logger.Info("connected to clustering tier",
		logging.String("addr", controlAddr),
		logging.Members(len(welcome.Members)),
	)

	return conn, nil
}

// roundTrip sends one control request and decodes the expected reply type
func roundTrip(sock mangos.Socket, reqType string, payload any, wantType string, out any) error {
	msg, err := newMessage(reqType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", reqType, err)
	}

	if err := sock.Send(data); err != nil {
		return fmt.Errorf("send %s: %w", reqType, err)
	}

	reply, err := sock.Recv()
	if err != nil {
		return fmt.Errorf("receive %s reply: %w", reqType, err)
	}

	var envelope message
	if err := json.Unmarshal(reply, &envelope); err != nil {
		return fmt.Errorf("decode %s reply: %w", reqType, err)
	}
	if envelope.Type != wantType {
		return fmt.Errorf("unexpected reply type %q to %s", envelope.Type, reqType)
	}
	return envelope.decode(out)
}

// tierConnection is the live handle returned by TierLocator.
//
// Concurrent Safety:
// 1. Control requests serialize on reqMu (req/rep allows one in flight)
// 2. The member set has its own lock and is updated only by watchTopology
// 3. Shutdown is idempotent via sync.Once and closes sockets so blocked
//    socket operations return errors instead of hanging
type tierConnection struct {
	id          string
	managerName string
	logger      logging.Logger

	reqMu   sync.Mutex
	reqSock mangos.Socket

	subSock mangos.Socket
	members *memberSet

	stopCh chan struct{}
	wg     sync.WaitGroup

	shutdownOnce sync.Once
	shutdownErr  error
}

// ID returns the identifier assigned during the handshake
func (c *tierConnection) ID() string {
	return c.id
}

// Topology returns the raw membership view backing this connection
func (c *tierConnection) Topology() topology.Source {
	return c.members
}

// watchTopology consumes wholesale member-set refreshes until shutdown
func (c *tierConnection) watchTopology() {
	defer c.wg.Done()

	for {
		data, err := c.subSock.Recv()
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}
			c.logger.Warn("topology stream receive failed", logging.Error(err))
			return
		}

		var envelope message
		if err := json.Unmarshal(data, &envelope); err != nil {
			c.logger.Warn("malformed topology frame", logging.Error(err))
			continue
		}
		if envelope.Type != msgTopology {
			continue
		}

		var update topologyUpdate
		if err := envelope.decode(&update); err != nil {
			c.logger.Warn("malformed topology update", logging.Error(err))
			continue
		}

		c.members.replace(update.Members)
		c.logger.Debug("topology refreshed", logging.Members(len(update.Members)))
	}
}

// WaitForOrchestrator polls the tier until the orchestrator for the named
// cache manager reports ready, ctx is done, or the connection shuts down
func (c *tierConnection) WaitForOrchestrator(ctx context.Context, managerName string) error {
	request := orchestratorRequest{ClientID: c.id, ManagerName: managerName}

	for {
		select {
		case <-c.stopCh:
			return ErrConnectionClosed
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var status orchestratorStatus
		c.reqMu.Lock()
		err := roundTrip(c.reqSock, msgOrchestrator, request, msgOrchestratorStatus, &status)
		c.reqMu.Unlock()
		if err != nil {
			return fmt.Errorf("orchestrator readiness for %q: %w", managerName, err)
		}
		if status.Ready {
			return nil
		}

		select {
		case <-c.stopCh:
			return ErrConnectionClosed
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(orchestratorPollInterval):
		}
	}
}

// Shutdown closes both sockets and waits for the topology watcher to exit.
// Safe to call multiple times.
func (c *tierConnection) Shutdown() error {
	c.shutdownOnce.Do(func() {
		close(c.stopCh)

		if c.subSock != nil {
			if err := c.subSock.Close(); err != nil {
				c.logger.Warn("close topology socket", logging.Error(err))
			}
		}

		c.reqMu.Lock()
		err := c.reqSock.Close()
		c.reqMu.Unlock()

		c.wg.Wait()
		c.shutdownErr = err
		c.logger.Info("tier connection shut down")
	})
	return c.shutdownErr
}
