// Package node implements the single-threaded event loop that owns a
// node's chain state and share accumulator, consuming the transport and
// consensus collaborators' event streams and emitting the application
// event set (spec.md §5, §6). It holds no cryptography or wire-format
// logic of its own; it only orchestrates internal/chainstate,
// internal/accumulator, internal/verify and internal/bounce under one
// exclusion region.
package node

import (
	"context"
	"sync"
	"time"

	"github.com/sectionmesh/node/internal/accumulator"
	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chainstate"
	"github.com/sectionmesh/node/internal/consensus"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/transport"
	"github.com/sectionmesh/node/internal/verify"
	"github.com/sectionmesh/node/pkg/interfaces"
)

// Node implements interfaces.NodeService.
var _ interfaces.NodeService = (*Node)(nil)

// defaultAccumulatorIdleTimeout bounds how long a partially-filled
// accumulation bucket is retained before EvictIdle drops it.
const defaultAccumulatorIdleTimeout = time.Minute

// accumulatorEvictInterval is how often the event loop sweeps idle
// accumulation buckets.
const accumulatorEvictInterval = 10 * time.Second

// sendRequestBuffer bounds the outgoing SendUserMessage request queue fed
// into the event loop's select.
const sendRequestBuffer = 32

// Transport is the subset of transport.Host the event loop depends on.
// Defined locally so tests can drive the loop against an in-memory double
// rather than a real libp2p host, mirroring original_source's
// mock/quick_p2p test harness.
type Transport interface {
	Events() <-chan transport.Event
	Publish(ctx context.Context, topic string, data []byte) error
	Resubscribe(ctx context.Context, prefix authority.Prefix) error
}

// Node owns one section member's local state and drives it from the
// transport and consensus collaborators' event streams.
type Node struct {
	identity crypto.FullId
	age      uint8

	state *chainstate.ChainState
	acc   *accumulator.Accumulator

	transport Transport
	engine    consensus.Engine

	extraAnchors map[string]verify.TrustedAnchor

	connectedEmitted bool
	relocating       bool

	events       chan Event
	sendRequests chan sendUserMessageRequest

	mu sync.Mutex
}

// New returns a Node identified by identity, starting at age (stored as
// given and used in the node's own Node-src envelopes), driven by
// transport and engine.
func New(identity crypto.FullId, age uint8, transport Transport, engine consensus.Engine) *Node {
	return &Node{
		identity:     identity,
		age:          age,
		state:        chainstate.New(),
		acc:          accumulator.New(defaultAccumulatorIdleTimeout),
		transport:    transport,
		engine:       engine,
		extraAnchors: make(map[string]verify.TrustedAnchor),
		events:       make(chan Event, maxEventsBuffered),
		sendRequests: make(chan sendUserMessageRequest, sendRequestBuffer),
	}
}

// Events returns the channel of application-facing events. The host
// program (cmd/node) is the intended reader.
func (n *Node) Events() <-chan Event { return n.events }

// State returns the node's chain state, for read-only inspection by HTTP
// status handlers and tests. Only the event loop goroutine mutates it.
func (n *Node) State() *chainstate.ChainState { return n.state }

// Identity returns the node's own full identity.
func (n *Node) Identity() crypto.FullId { return n.identity }

// MarkRelocating flips on the flag that makes the next successful
// (re)connection emit ConnectedRelocate instead of ConnectedFirst. There
// is no relocation policy state machine here (spec.md's Non-goals exclude
// it) — callers that detect a relocation elsewhere set this directly.
func (n *Node) MarkRelocating() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.relocating = true
	n.connectedEmitted = false
}

// TrustAnchor records key as an additional trusted anchor for prefix, on
// top of our own section's current key. Used once a foreign section's
// chain has been verified Full, so later messages from it verify without
// walking the whole chain again.
func (n *Node) TrustAnchor(prefix authority.Prefix, key crypto.SectionKey) {
	n.extraAnchors[prefix.String()] = verify.TrustedAnchor{Prefix: prefix, Key: key}
}

func (n *Node) trustedAnchors() []verify.TrustedAnchor {
	anchors := make([]verify.TrustedAnchor, 0, len(n.extraAnchors)+1)
	if h := n.state.History(); h != nil {
		anchors = append(anchors, verify.TrustedAnchor{Prefix: n.state.OurPrefix(), Key: h.LastKey()})
	}
	for _, a := range n.extraAnchors {
		anchors = append(anchors, a)
	}
	return anchors
}

func (n *Node) emit(ev Event) {
	select {
	case n.events <- ev:
	default:
		// Application event consumer has fallen behind; dropping here
		// rather than blocking the event loop matches transport.Host's
		// emit and keeps the single exclusion region non-blocking.
	}
}

func (n *Node) isElder() bool {
	self := n.identity.Name()
	for _, e := range n.state.Elders().Elders {
		if e.Name == self {
			return true
		}
	}
	return false
}

