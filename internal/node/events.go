package node

import (
	"crypto/ed25519"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
)

// Event is the closed set of application-facing events the node event loop
// emits, per spec.md §6's table plus the client-message and section
// split/merge events this repo adds on top of it.
type Event interface {
	isNodeEvent()
}

// ConnectedFirst reports that this node has joined the network for the
// first time (founded a section, or been approved into one).
type ConnectedFirst struct{}

func (ConnectedFirst) isNodeEvent() {}

// ConnectedRelocate reports that this node has reconnected after a
// relocation to a new section.
type ConnectedRelocate struct{}

func (ConnectedRelocate) isNodeEvent() {}

// MessageReceived delivers a UserMessage addressed to us through ordinary
// section routing.
type MessageReceived struct {
	Content []byte
	Src     authority.SrcLocation
	Dst     authority.DstLocation
}

func (MessageReceived) isNodeEvent() {}

// ClientMessageReceived delivers a UserMessage sent directly to us outside
// section routing (authority.DirectDst), together with the sending
// client's Ed25519 public key.
type ClientMessageReceived struct {
	Content   []byte
	ClientKey ed25519.PublicKey
}

func (ClientMessageReceived) isNodeEvent() {}

// PromotedToElder reports that this node has become one of its section's
// elders.
type PromotedToElder struct{}

func (PromotedToElder) isNodeEvent() {}

// Demoted reports that this node is no longer one of its section's
// elders.
type Demoted struct{}

func (Demoted) isNodeEvent() {}

// MemberJoined reports a new section member admitted at age.
type MemberJoined struct {
	Name crypto.Name
	Age  uint8
}

func (MemberJoined) isNodeEvent() {}

// MemberLeft reports a section member's departure. Age is the member's
// age at the time of departure. A departure of a member that was never
// locally tracked is rejected by ChainState and emits no MemberLeft.
type MemberLeft struct {
	Name crypto.Name
	Age  uint8
}

func (MemberLeft) isNodeEvent() {}

// EldersChanged reports the section's current elder membership and active
// key, after every SectionInfo application.
type EldersChanged struct {
	Prefix authority.Prefix
	Key    crypto.SectionKey
	Elders []crypto.Name
}

func (EldersChanged) isNodeEvent() {}

// SectionSplit reports that our section's prefix grew longer (a split),
// inferred from successive SectionInfo applications.
type SectionSplit struct {
	Prefix authority.Prefix
}

func (SectionSplit) isNodeEvent() {}

// SectionMerge reports that our section's prefix grew shorter (a merge).
type SectionMerge struct {
	Prefix authority.Prefix
}

func (SectionMerge) isNodeEvent() {}

// RestartRequired reports that the node cannot continue (e.g. bootstrap
// exhausted every peer) and must be restarted by its operator.
type RestartRequired struct{}

func (RestartRequired) isNodeEvent() {}

// Terminated reports that the event loop has stopped.
type Terminated struct{}

func (Terminated) isNodeEvent() {}
