package accumulator

import (
	"sync"
	"time"

	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
)

// entry tracks the shares seen so far for one accumulation key.
type entry struct {
	publicKeySet *crypto.PublicKeySet
	content      PlainMessage
	shares       map[int]crypto.SignatureShare
	lastTouched  time.Time
}

// Accumulator converges per-elder BLS signature shares for identical
// outgoing content into a single combined Section-src envelope. It is
// owned and driven by one goroutine (the node event loop, §5); the
// internal mutex only protects against incidental concurrent callers
// (HTTP status handlers, tests) and is never held across blocking work.
type Accumulator struct {
	mu          sync.Mutex
	entries     map[AccumulationKey]*entry
	idleTimeout time.Duration
}

// New returns an empty Accumulator evicting entries idle longer than
// idleTimeout.
func New(idleTimeout time.Duration) *Accumulator {
	return &Accumulator{
		entries:     make(map[AccumulationKey]*entry),
		idleTimeout: idleTimeout,
	}
}

// Add verifies msg's partial signature and folds it into its
// accumulation bucket. currentElders is the caller's locally known,
// currently-recognised elder key set for the section the share claims to
// come from (spec.md §4.F); it anchors the membership check below and may
// be nil for a node with no section state yet. Add returns a non-nil
// *message.Message once the bucket holds more than threshold distinct
// valid shares and they combine and verify; otherwise it returns (nil,
// nil) once the share has been safely absorbed, or a non-nil error if the
// share itself (or an incompatible prior bucket) rules it out.
func (a *Accumulator) Add(msg AccumulatingMessage, currentElders *crypto.PublicKeySet) (*message.Message, error) {
	signable, err := msg.Content.SignableBytes()
	if err != nil {
		return nil, err
	}

	share := msg.ProofShare
	pubShare := share.PublicKeySet.PublicKeyShare(share.Index)
	if err := pubShare.Verify(signable, share.Signature); err != nil {
		return nil, ErrInvalidShare
	}

	if share.Index < 0 || share.Index >= share.PublicKeySet.N() {
		return nil, ErrIndexOutOfRange
	}
	if !isRecognisedElderKeySet(currentElders, share.PublicKeySet, msg.ProofChain) {
		return nil, ErrNotElder
	}

	key, err := NewAccumulationKey(msg.Content, msg.ProofChain)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[key]
	switch {
	case !ok:
		e = &entry{
			publicKeySet: share.PublicKeySet,
			content:      msg.Content,
			shares:       make(map[int]crypto.SignatureShare),
		}
		a.entries[key] = e
	case e.publicKeySet.Equal(share.PublicKeySet):
		// Same bucket, same key set; fall through to fold the share in.
	case supersedes(msg.ProofChain, e.publicKeySet, share.PublicKeySet):
		// The new key set's last key appears later in our chain than the
		// bucket's current one: a re-key raced ahead of some elders.
		// Restart the bucket under the newer set rather than discard the
		// newer, correct shares (spec.md §4.F).
		e.publicKeySet = share.PublicKeySet
		e.shares = make(map[int]crypto.SignatureShare)
	default:
		return nil, ErrAccumulatorMismatch
	}

	e.shares[share.Index] = share.Signature
	e.lastTouched = time.Now()

	threshold := e.publicKeySet.Threshold()
	if len(e.shares) <= threshold {
		return nil, nil
	}

	combined, err := crypto.CombineSignatures(e.publicKeySet, signable, e.shares)
	if err != nil {
		// Not enough distinct, mutually-consistent shares yet; retain the
		// bucket in case more arrive.
		return nil, nil
	}

	envelope, err := message.SectionSrc(e.content.Src, combined, e.content.Dst, e.content.Variant, msg.ProofChain, e.content.DstKey)
	if err != nil {
		return nil, err
	}

	delete(a.entries, key)
	return envelope, nil
}

// isRecognisedElderKeySet reports whether keySet is a key set shares may
// legitimately be accumulated under: either current (the caller's own
// up-to-date view of the section's elders), or a set that proof proves
// supersedes current by appearing later in the chain. A nil current
// defers the decision entirely to chain trust elsewhere in the pipeline,
// since a node with no section state yet has nothing to check membership
// against.
func isRecognisedElderKeySet(current, keySet *crypto.PublicKeySet, proof *chain.SectionProofChain) bool {
	if current == nil {
		return true
	}
	if current.Equal(keySet) {
		return true
	}
	return supersedes(proof, current, keySet)
}

// supersedes reports whether newSet's combined public key appears later in
// proof than oldSet's, per spec.md §4.F's "replaces the entry only if the
// new set's last key appears later in our chain" rule.
func supersedes(proof *chain.SectionProofChain, oldSet, newSet *crypto.PublicKeySet) bool {
	if proof == nil {
		return false
	}
	newIdx := proof.IndexOf(newSet.PublicKey())
	if newIdx == -1 {
		return false
	}
	oldIdx := proof.IndexOf(oldSet.PublicKey())
	return oldIdx == -1 || newIdx > oldIdx
}

// EvictIdle drops accumulation buckets that have not received a new
// share in more than the configured idle timeout, as of now. It returns
// the number of buckets evicted.
func (a *Accumulator) EvictIdle(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	evicted := 0
	for k, e := range a.entries {
		if now.Sub(e.lastTouched) > a.idleTimeout {
			delete(a.entries, k)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of distinct accumulation buckets currently held.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
