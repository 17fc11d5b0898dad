package locator

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dd0wney/cluso-cachetier/pkg/topology"
)

// Control protocol version spoken over the req/rep channel
const protocolVersion = "1.0"

// Message types on the control and topology channels
const (
	msgHello              = "hello"
	msgWelcome            = "welcome"
	msgOrchestrator       = "orchestrator"
	msgOrchestratorStatus = "orchestrator_status"
	msgTopology           = "topology"
)

// message is the envelope for every frame exchanged with the tier
type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// newMessage wraps a payload in an envelope
func newMessage(msgType string, payload any) (message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return message{}, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return message{Type: msgType, Payload: data}, nil
}

// decode unmarshals the envelope payload into v
func (m message) decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// wireMember is the on-the-wire form of a topology member
type wireMember struct {
	ID      string `json:"id"`
	Addr    string `json:"addr"`
	Healthy bool   `json:"healthy"`
}

// helloRequest opens the handshake
type helloRequest struct {
	ClientID    string `json:"client_id"`
	ManagerName string `json:"manager_name"`
	Scope       string `json:"scope,omitempty"`
	Version     string `json:"version"`
}

// welcomeResponse answers the handshake with the initial member set
type welcomeResponse struct {
	Accepted     bool         `json:"accepted"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Members      []wireMember `json:"members"`
}

// orchestratorRequest polls orchestrator readiness for a cache manager
type orchestratorRequest struct {
	ClientID    string `json:"client_id"`
	ManagerName string `json:"manager_name"`
}

// orchestratorStatus reports orchestrator readiness
type orchestratorStatus struct {
	Ready bool `json:"ready"`
}

// topologyUpdate is a wholesale member-set refresh from the pub/sub stream
type topologyUpdate struct {
	Members []wireMember `json:"members"`
}

func toMembers(wire []wireMember) []topology.Member {
	members := make([]topology.Member, len(wire))
	for i, m := range wire {
		members[i] = topology.Member{ID: m.ID, Addr: m.Addr, Healthy: m.Healthy}
	}
	return members
}

// memberSet is the mutable raw topology backing one connection. It
// implements topology.Source and is replaced-in-content (never identity)
// by the topology stream.
type memberSet struct {
	mu      sync.RWMutex
	members []topology.Member
}

func newMemberSet(wire []wireMember) *memberSet {
	return &memberSet{members: toMembers(wire)}
}

// Members returns a snapshot of the current member set
func (s *memberSet) Members() []topology.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]topology.Member, len(s.members))
	copy(out, s.members)
	return out
}

// replace swaps the member set wholesale
func (s *memberSet) replace(wire []wireMember) {
	members := toMembers(wire)
	s.mu.Lock()
	s.members = members
	s.mu.Unlock()
}

// StripCredentials removes an embedded user:pass@ userinfo section from a
// tier URL so it can be dialed directly. Credentials themselves flow
// through the secrets delegate, never over the dial string.
func StripCredentials(raw string) string {
	scheme := ""
	rest := raw
	if i := strings.Index(raw, "://"); i >= 0 {
		scheme = raw[:i+3]
		rest = raw[i+3:]
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return scheme + rest
}
