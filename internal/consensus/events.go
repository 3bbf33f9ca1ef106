// Package consensus defines the interface between the node event loop and
// the external consensus engine that orders section membership and
// key-history events (spec.md §2, §5). This package owns no BFT algorithm
// of its own — the actual ordering (PARSEC or a successor) runs outside
// this core; this package only shapes how the core consumes and feeds it.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sectionmesh/node/internal/chainstate"
	"github.com/sectionmesh/node/pkg/interfaces"
)

// ErrEngineClosed is returned by Propose once Stop has been called.
var ErrEngineClosed = errors.New("consensus: engine closed")

// LocalEngine implements interfaces.ConsensusService.
var _ interfaces.ConsensusService = (*LocalEngine)(nil)

// ErrEventsFull is returned when a proposal cannot be accepted because the
// engine's pending backlog is already at capacity.
var ErrEventsFull = errors.New("consensus: pending events buffer full")

// EventStream is the consensus collaborator's output: an ordered feed of
// chainstate.Event values that the node event loop folds into ChainState,
// one at a time, in delivery order (spec.md §5's "next() on the
// consensus-event stream" suspension point).
type EventStream interface {
	// Events returns the channel of consensus-ordered events. The channel
	// is closed once the engine shuts down.
	Events() <-chan chainstate.Event
}

// Proposer lets the node submit candidate events (an observed connectivity
// change, a key-generation result) for the consensus engine to order and
// echo back on the EventStream. Proposing does not itself mutate
// ChainState; only the echoed event, once it arrives off the stream, does.
type Proposer interface {
	Propose(ctx context.Context, event chainstate.Event) error
}

// Engine bundles the consumption and proposal sides of the consensus
// collaborator, mirroring a PARSEC-style instance's lifecycle.
type Engine interface {
	EventStream
	Proposer
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// maxPendingEvents bounds a local Engine's backlog, matching spec.md's
// MAX_EVENTS_BUFFERED bound on the node's own event queues.
const maxPendingEvents = 1024

// LocalEngine is a single-process stand-in for the external consensus
// collaborator: proposed events are echoed back on the EventStream in the
// order Propose was called, with no Byzantine-fault ordering of its own.
// It exists for driving the node event loop and its tests without a real
// multi-node PARSEC deployment; it is not a substitute for one.
type LocalEngine struct {
	mu      sync.Mutex
	events  chan chainstate.Event
	closed  bool
}

// NewLocalEngine creates a LocalEngine.
func NewLocalEngine() *LocalEngine {
	return &LocalEngine{
		events: make(chan chainstate.Event, maxPendingEvents),
	}
}

// Start is a no-op for LocalEngine; it exists to satisfy Engine.
func (e *LocalEngine) Start(ctx context.Context) error { return nil }

// Stop closes the event stream. Subsequent Propose calls fail.
func (e *LocalEngine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.events)
	return nil
}

// Events implements EventStream.
func (e *LocalEngine) Events() <-chan chainstate.Event { return e.events }

// Propose implements Proposer, echoing event back on the EventStream.
func (e *LocalEngine) Propose(ctx context.Context, event chainstate.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	select {
	case e.events <- event:
		return nil
	default:
		return fmt.Errorf("%w: %d buffered", ErrEventsFull, len(e.events))
	}
}
