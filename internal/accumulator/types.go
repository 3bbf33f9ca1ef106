// Package accumulator implements the share accumulator: converging a
// threshold of valid BLS signature shares from distinct elder indices,
// for identical (content, proof chain, public key set), into one
// Section-src envelope.
package accumulator

import (
	"encoding/json"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
)

// PlainMessage is the canonical pre-signature content: the part of an
// outgoing message every elder signs identically.
type PlainMessage struct {
	Src     authority.Prefix
	Dst     authority.DstLocation
	DstKey  crypto.SectionKey
	Variant message.Variant
}

// SignableBytes returns the bytes every elder's partial signature is
// produced over.
func (p PlainMessage) SignableBytes() ([]byte, error) {
	return message.SignableBytes(p.Dst, p.DstKey, p.Variant)
}

// ProofShare is one elder's contribution toward a combined signature.
type ProofShare struct {
	PublicKeySet *crypto.PublicKeySet
	Index        int
	Signature    crypto.SignatureShare
}

// AccumulatingMessage is content to be jointly signed, plus one elder's
// share toward that signature.
type AccumulatingMessage struct {
	Content    PlainMessage
	ProofChain *chain.SectionProofChain
	ProofShare ProofShare
}

// AccumulationKey is the tuple (hash(content), hash(proof_chain), dst_key)
// under which shares for the same outgoing message converge.
type AccumulationKey struct {
	ContentHash    crypto.Hash32
	ProofChainHash crypto.Hash32
	DstKeyBytes    string
}

// NewAccumulationKey derives the accumulation key for msg.
func NewAccumulationKey(content PlainMessage, proofChain *chain.SectionProofChain) (AccumulationKey, error) {
	contentBytes, err := content.SignableBytes()
	if err != nil {
		return AccumulationKey{}, err
	}
	proofBytes, err := json.Marshal(proofChain)
	if err != nil {
		return AccumulationKey{}, err
	}
	return AccumulationKey{
		ContentHash:    crypto.Hash(contentBytes),
		ProofChainHash: crypto.Hash(proofBytes),
		DstKeyBytes:    string(content.DstKey.Bytes()),
	}, nil
}

// shareWireTag marks a ShareMessage's wire bytes on a node topic, the same
// way message.FromBytes reserves the 0x00 prefix for liveness pings: both
// ShareMessage and message.Message can land in the same transport.NewMessage
// stream on an elder's own node topic, so the tag lets the event loop route
// each to the right handler without attempting to decode one as the other.
const shareWireTag = 0x01

// ShareMessage is the wire form of one elder's partial signature over a
// PlainMessage, exchanged directly between a section's elders ahead of
// accumulation (spec.md §4.F's outgoing data flow, step "AccumulatingMessage
// to each elder"). It omits the public key set its corresponding
// AccumulatingMessage.ProofShare carries: elders normally share one
// section-wide current key set already held in their own chain state, so
// the receiving elder supplies that instead of trusting one from the wire.
type ShareMessage struct {
	Content    PlainMessage             `json:"content"`
	ProofChain *chain.SectionProofChain `json:"proof_chain"`
	Index      int                      `json:"index"`
	Signature  crypto.SignatureShare    `json:"signature"`
}

// MarshalShare encodes msg with its leading wire tag.
func MarshalShare(msg ShareMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append([]byte{shareWireTag}, body...), nil
}

// IsShareMessage reports whether data carries the ShareMessage wire tag.
func IsShareMessage(data []byte) bool {
	return len(data) > 0 && data[0] == shareWireTag
}

// UnmarshalShare decodes data, including its leading tag byte, into a
// ShareMessage.
func UnmarshalShare(data []byte) (ShareMessage, error) {
	if !IsShareMessage(data) {
		return ShareMessage{}, ErrNotAShare
	}
	var msg ShareMessage
	if err := json.Unmarshal(data[1:], &msg); err != nil {
		return ShareMessage{}, err
	}
	return msg, nil
}

// ToAccumulatingMessage attaches currentElders — the receiving elder's own
// locally known current key set for the section — to msg, producing the
// AccumulatingMessage Accumulator.Add expects. Folding the resulting
// message in still re-verifies the partial signature against
// currentElders, so a stale or wrong key set simply fails verification
// rather than being silently trusted from the wire.
func (msg ShareMessage) ToAccumulatingMessage(currentElders *crypto.PublicKeySet) AccumulatingMessage {
	return AccumulatingMessage{
		Content:    msg.Content,
		ProofChain: msg.ProofChain,
		ProofShare: ProofShare{
			PublicKeySet: currentElders,
			Index:        msg.Index,
			Signature:    msg.Signature,
		},
	}
}
