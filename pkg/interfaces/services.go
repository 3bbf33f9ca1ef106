// Package interfaces declares the service boundaries cmd/node wires
// together: transport, consensus and the node event loop itself. They
// exist so alternative implementations (a test double, a future
// non-libp2p transport, a real external consensus collaborator) can be
// substituted without cmd/node depending on their concrete types.
package interfaces

import (
	"context"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chainstate"
	"github.com/sectionmesh/node/pkg/types"
)

// TransportService is a subset of internal/transport.Host's methods,
// asserted at Host's declaration. internal/node consumes the narrower
// node.Transport interface instead.
type TransportService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	Publish(ctx context.Context, topic string, data []byte) error
	Subscribe(ctx context.Context, topic string) error
	Resubscribe(ctx context.Context, prefix authority.Prefix) error

	GetNetworkInfo() map[string]interface{}
}

// ConsensusService is the subset of internal/consensus.Engine the node
// event loop depends on: a stream of agreed chainstate.Event values, and a
// way to propose new ones.
type ConsensusService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Events() <-chan chainstate.Event
	Propose(ctx context.Context, ev chainstate.Event) error
}

// NodeService is the event loop's externally-visible surface: the part
// cmd/node and tests drive from outside the single exclusion region.
type NodeService interface {
	Run(ctx context.Context) error
	State() *chainstate.ChainState
	MarkRelocating()
}

// HealthService reports process-level liveness and readiness, the shape
// cmd/node's startup readiness check answers from.
type HealthService interface {
	GetHealth(ctx context.Context) (*types.ServiceHealth, error)
	IsReady(ctx context.Context) (bool, error)
	IsAlive(ctx context.Context) (bool, error)
}
