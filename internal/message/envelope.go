package message

import (
	"encoding/json"
	"fmt"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
)

// Message is the immutable, hash-keyed envelope wrapping a source
// attestation, destination, payload variant, proof chain, and
// destination-key hint.
type Message struct {
	src        authority.SrcAuthority
	dst        authority.DstLocation
	variant    Variant
	proofChain *chain.SectionProofChain
	dstKey     crypto.SectionKey

	serialized []byte
	hash       crypto.Hash32
}

type wireMessage struct {
	Src        authority.SrcAuthority   `json:"src"`
	Dst        authority.DstLocation    `json:"dst"`
	Variant    Variant                  `json:"variant"`
	ProofChain *chain.SectionProofChain `json:"proof_chain,omitempty"`
	DstKey     crypto.SectionKey        `json:"dst_key,omitzero"`
}

// SingleSrc builds a Node-src envelope, signed by node's secret signing
// key over the Signable view.
func SingleSrc(node crypto.FullId, age uint8, dst authority.DstLocation, variant Variant, proofChain *chain.SectionProofChain, dstKey crypto.SectionKey) (*Message, error) {
	if variant.RequiresProofChain() && proofChain == nil {
		return nil, ErrInvalidMessage
	}
	signable, err := SignableBytes(dst, dstKey, variant)
	if err != nil {
		return nil, err
	}
	sig, err := node.Sign(signable)
	if err != nil {
		return nil, fmt.Errorf("sign envelope: %w", err)
	}
	src := authority.NodeSrc(node.PublicId().PublicKey(), age, sig)
	return newMessage(src, dst, variant, proofChain, dstKey)
}

// SectionSrc builds a Section-src envelope from an already-combined BLS
// signature. The constructor does not re-verify the signature — the
// accumulator (internal/accumulator) is responsible for that.
func SectionSrc(prefix authority.Prefix, signature []byte, dst authority.DstLocation, variant Variant, proofChain *chain.SectionProofChain, dstKey crypto.SectionKey) (*Message, error) {
	if proofChain == nil {
		return nil, ErrInvalidMessage
	}
	src := authority.SectionSrc(prefix, signature)
	return newMessage(src, dst, variant, proofChain, dstKey)
}

func newMessage(src authority.SrcAuthority, dst authority.DstLocation, variant Variant, proofChain *chain.SectionProofChain, dstKey crypto.SectionKey) (*Message, error) {
	m := &Message{src: src, dst: dst, variant: variant, proofChain: proofChain, dstKey: dstKey}
	if err := m.computeDerived(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) computeDerived() error {
	serialized, err := CanonicalizeJSON(wireMessage{
		Src:        m.src,
		Dst:        m.dst,
		Variant:    m.variant,
		ProofChain: m.proofChain,
		DstKey:     m.dstKey,
	})
	if err != nil {
		return err
	}
	m.serialized = serialized
	m.hash = crypto.Hash(serialized)
	return nil
}

func (m *Message) Src() authority.SrcAuthority           { return m.src }
func (m *Message) Dst() authority.DstLocation            { return m.dst }
func (m *Message) Variant() Variant                      { return m.variant }
func (m *Message) ProofChain() *chain.SectionProofChain  { return m.proofChain }
func (m *Message) DstKey() crypto.SectionKey             { return m.dstKey }
func (m *Message) Hash() crypto.Hash32                   { return m.hash }

// Serialize returns the canonical wire bytes for this envelope.
func (m *Message) Serialize() []byte {
	out := make([]byte, len(m.serialized))
	copy(out, m.serialized)
	return out
}

// SignableBytes recomputes the bytes this envelope's outer signature was
// produced over.
func (m *Message) SignableBytes() ([]byte, error) {
	return SignableBytes(m.dst, m.dstKey, m.variant)
}

// FromBytes decodes and structurally validates an envelope. It does not
// perform the single-signature check (invariant 1 of §3); callers run
// that through internal/verify before acting on the result.
func FromBytes(data []byte) (*Message, error) {
	if len(data) == 0 || data[0] == 0x00 {
		// 0x00 is reserved for liveness pings and is never a valid
		// envelope prefix.
		return nil, ErrSerialisation
	}
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialisation, err)
	}
	if w.Src.IsSection() && w.ProofChain == nil {
		return nil, ErrInvalidMessage
	}
	return newMessage(w.Src, w.Dst, w.Variant, w.ProofChain, w.DstKey)
}

// ExtendProofChain returns a new envelope whose proof chain starts at
// newFirst (taken from donor) and whose last key, and therefore
// signature, is unchanged.
func (m *Message) ExtendProofChain(newFirst crypto.SectionKey, donor *chain.SectionProofChain) (*Message, error) {
	if m.proofChain == nil {
		return nil, ErrInvalidMessage
	}
	extended, err := m.proofChain.Extend(newFirst, donor)
	if err != nil {
		return nil, err
	}
	return newMessage(m.src, m.dst, m.variant, extended, m.dstKey)
}

// Slice returns a new envelope whose proof chain is truncated to
// proofChain.Slice(from), for economy before resending. The receiver
// still validates the suffix.
func (m *Message) Slice(from int) (*Message, error) {
	if m.proofChain == nil {
		return nil, ErrInvalidMessage
	}
	sliced, err := m.proofChain.Slice(from)
	if err != nil {
		return nil, err
	}
	return newMessage(m.src, m.dst, m.variant, sliced, m.dstKey)
}

// Equal compares two envelopes field-wise, ignoring the derived serialized
// bytes and hash so equality holds across reserialisation.
func (m *Message) Equal(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	if !m.src.Equal(o.src) {
		return false
	}
	if !m.dst.Equal(o.dst) {
		return false
	}
	if !m.variant.Equal(o.variant) {
		return false
	}
	if !m.dstKey.Equal(o.dstKey) {
		return false
	}
	return m.proofChain.Equal(o.proofChain)
}
