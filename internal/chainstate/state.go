// Package chainstate applies consensus-delivered events to a section's
// local view of its own key history, elder membership, and peer
// knowledge (spec.md §4.I). It holds no transport or consensus
// dependencies of its own; the node event loop feeds it events in
// delivery order under a single exclusion region.
package chainstate

import (
	"fmt"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
)

// ChainState is a section member's local chain-state machine.
type ChainState struct {
	history        *chain.SectionProofChain
	ourPrefix      authority.Prefix
	elders         message.EldersInfo
	members        map[crypto.Name]*Member
	publicKeySet   *crypto.PublicKeySet
	secretKeyShare *crypto.SecretKeyShare
	pendingOurKey  *OurKey
	theirKnowledge map[string]int
	parsecVersion  uint64
}

// New returns an uninitialised ChainState; apply a Genesis event before
// anything else.
func New() *ChainState {
	return &ChainState{
		members:        make(map[crypto.Name]*Member),
		theirKnowledge: make(map[string]int),
	}
}

// Apply folds one consensus event into the state, in the order the
// consensus collaborator delivered it.
func (s *ChainState) Apply(e Event) error {
	switch ev := e.(type) {
	case Genesis:
		return s.applyGenesis(ev)
	case OurKey:
		return s.applyOurKey(ev)
	case SectionInfo:
		return s.applySectionInfo(ev)
	case Online:
		return s.applyOnline(ev)
	case Offline:
		return s.applyOffline(ev)
	case MemberJoined:
		return s.applyMemberJoined(ev)
	case MemberLeft:
		return s.applyMemberLeft(ev)
	case TheirKnowledge:
		return s.applyTheirKnowledge(ev)
	case ParsecPrune:
		s.parsecVersion++
		return nil
	default:
		return ErrUnknownEvent
	}
}

func (s *ChainState) applyGenesis(ev Genesis) error {
	if s.history != nil {
		return ErrAlreadyInitialised
	}
	s.history = chain.NewSectionProofChain(ev.Key)
	s.ourPrefix = authority.EmptyPrefix()
	s.elders = ev.Elders
	return nil
}

func (s *ChainState) applyOurKey(ev OurKey) error {
	if s.history == nil {
		return ErrNotInitialised
	}
	pending := ev
	s.pendingOurKey = &pending
	return nil
}

func (s *ChainState) applySectionInfo(ev SectionInfo) error {
	if s.history == nil {
		return ErrNotInitialised
	}
	if s.pendingOurKey == nil {
		return ErrNoPendingKey
	}
	if !ev.Elders.Prefix.Equal(s.pendingOurKey.Prefix) {
		return ErrPrefixMismatch
	}
	if err := s.history.Push(s.pendingOurKey.Key, ev.LinkSig); err != nil {
		return fmt.Errorf("%w: push section key: %v", ErrFatal, err)
	}
	if !s.history.LastKey().Equal(ev.PublicKeySet.PublicKey()) {
		return fmt.Errorf("%w: history.last_key() != public_key_set.public_key()", ErrFatal)
	}
	s.elders = ev.Elders
	s.publicKeySet = ev.PublicKeySet
	s.secretKeyShare = ev.SecretKeyShare
	s.ourPrefix = ev.Elders.Prefix
	s.pendingOurKey = nil
	return nil
}

func (s *ChainState) applyOnline(ev Online) error {
	m, ok := s.members[ev.Name]
	if !ok {
		return ErrUnknownMember
	}
	m.AgeCounter.Increment()
	return nil
}

func (s *ChainState) applyOffline(ev Offline) error {
	if _, ok := s.members[ev.Name]; !ok {
		return ErrUnknownMember
	}
	return nil
}

func (s *ChainState) applyMemberJoined(ev MemberJoined) error {
	s.members[ev.Name] = &Member{AgeCounter: NewAgeCounter(ev.Age), State: StateJoined}
	return nil
}

func (s *ChainState) applyMemberLeft(ev MemberLeft) error {
	if _, ok := s.members[ev.Name]; !ok {
		return ErrUnknownMember
	}
	delete(s.members, ev.Name)
	return nil
}

// applyTheirKnowledge only ever moves the recorded index forward, per
// spec.md §4.I's monotonicity invariant.
func (s *ChainState) applyTheirKnowledge(ev TheirKnowledge) error {
	key := ev.Prefix.String()
	if cur, ok := s.theirKnowledge[key]; ok && cur >= ev.Knowledge {
		return nil
	}
	s.theirKnowledge[key] = ev.Knowledge
	return nil
}

// TheirKnowledge returns the last-recorded knowledge index for the
// section at prefix, if any.
func (s *ChainState) TheirKnowledge(prefix authority.Prefix) (int, bool) {
	k, ok := s.theirKnowledge[prefix.String()]
	return k, ok
}

func (s *ChainState) History() *chain.SectionProofChain { return s.history }
func (s *ChainState) OurPrefix() authority.Prefix        { return s.ourPrefix }
func (s *ChainState) Elders() message.EldersInfo          { return s.elders }
func (s *ChainState) PublicKeySet() *crypto.PublicKeySet  { return s.publicKeySet }
func (s *ChainState) SecretKeyShare() *crypto.SecretKeyShare {
	return s.secretKeyShare
}
func (s *ChainState) ParsecVersion() uint64 { return s.parsecVersion }

// Member returns the locally tracked membership record for name, if any.
func (s *ChainState) Member(name crypto.Name) (Member, bool) {
	m, ok := s.members[name]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// MemberCount returns the current section membership size.
func (s *ChainState) MemberCount() int {
	return len(s.members)
}
