package chainstate

import (
	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
)

// Event is the closed set of consensus-delivered events ChainState
// applies, in delivery order (spec.md §4.I).
type Event interface {
	isChainStateEvent()
}

// Genesis initialises history with the section's founding key and elder
// membership.
type Genesis struct {
	Key    crypto.SectionKey
	Elders message.EldersInfo
}

func (Genesis) isChainStateEvent() {}

// OurKey announces an upcoming section key for prefix, retained until a
// matching SectionInfo arrives.
type OurKey struct {
	Prefix authority.Prefix
	Key    crypto.SectionKey
}

func (OurKey) isChainStateEvent() {}

// SectionInfo atomically advances the chain: the pending OurKey is pushed
// onto history using LinkSig (produced by the prior key over the new key
// by the key-generation collaborator), elders is replaced, and the active
// public key set / secret key share rotate.
type SectionInfo struct {
	Elders         message.EldersInfo
	LinkSig        []byte
	PublicKeySet   *crypto.PublicKeySet
	SecretKeyShare *crypto.SecretKeyShare
}

func (SectionInfo) isChainStateEvent() {}

// Online records a churn event for an existing member (e.g. a
// reconnection), advancing its age counter.
type Online struct {
	Name crypto.Name
}

func (Online) isChainStateEvent() {}

// Offline records a connectivity loss for an existing member. It does
// not remove membership; a subsequent MemberLeft does that once churn
// consensus confirms departure.
type Offline struct {
	Name crypto.Name
}

func (Offline) isChainStateEvent() {}

// MemberJoined admits name as a new section member at age.
type MemberJoined struct {
	Name crypto.Name
	Age  uint8
}

func (MemberJoined) isChainStateEvent() {}

// MemberLeft removes name from the section membership.
type MemberLeft struct {
	Name crypto.Name
}

func (MemberLeft) isChainStateEvent() {}

// TheirKnowledge records that the remote section at Prefix has seen our
// chain up to index Knowledge, bounding how long a proof chain we must
// attach to future messages addressed to it.
type TheirKnowledge struct {
	Prefix    authority.Prefix
	Knowledge int
}

func (TheirKnowledge) isChainStateEvent() {}

// ParsecPrune signals that the consensus engine has compacted its gossip
// graph; opaque here beyond bumping the engine version.
type ParsecPrune struct{}

func (ParsecPrune) isChainStateEvent() {}
