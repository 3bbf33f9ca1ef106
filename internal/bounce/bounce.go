// Package bounce implements the two bounce variants a receiver uses to
// report an envelope it cannot process but the sender can repair: an
// unrecognised variant (BouncedUnknownMessage) and an unverifiable proof
// chain (BouncedUntrustedMessage). See spec.md §4.H.
package bounce

import (
	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
)

// IsBounce reports whether v is one of the two bounce variants.
func IsBounce(v message.Variant) bool {
	return v.Tag() == message.TagBouncedUnknownMessage || v.Tag() == message.TagBouncedUntrustedMessage
}

// Unknown builds a BouncedUnknownMessage reply to original, carrying
// ourParsecVersion so the original sender can catch us up. It is always
// addressed directly back to whoever handed us original — never routed —
// per authority.DirectDst. Returns ErrBounceLoop if original is itself a
// bounce.
func Unknown(original *message.Message, ourParsecVersion uint64, responder crypto.FullId, age uint8) (*message.Message, error) {
	if IsBounce(original.Variant()) {
		return nil, ErrBounceLoop
	}
	variant := message.NewBouncedUnknownMessage(original.Serialize(), ourParsecVersion)
	return message.SingleSrc(responder, age, authority.DirectDst(), variant, nil, crypto.SectionKey{})
}

// Untrusted builds a BouncedUntrustedMessage reply to original, carrying
// our best-known destination key so the sender can extend its proof chain
// far enough for us to verify it. Returns ErrBounceLoop if original is
// itself a bounce.
func Untrusted(original *message.Message, ourBestKey crypto.SectionKey, responder crypto.FullId, age uint8) (*message.Message, error) {
	if IsBounce(original.Variant()) {
		return nil, ErrBounceLoop
	}
	variant := message.NewBouncedUntrustedMessage(original.Serialize(), ourBestKey)
	return message.SingleSrc(responder, age, authority.DirectDst(), variant, nil, crypto.SectionKey{})
}

// RepairUnknown decodes a received BouncedUnknownMessage, returning the
// original envelope bytes (for retransmission) and the bouncer's reported
// parsec version (so the sender's consensus collaborator can build the
// missing ParsecRequest).
func RepairUnknown(bounced *message.Message) (originalBytes []byte, bouncerParsecVersion uint64, err error) {
	original, version, ok := bounced.Variant().BouncedUnknownMessage()
	if !ok {
		return nil, 0, ErrNotABounce
	}
	return original, version, nil
}

// RepairUntrusted decodes a received BouncedUntrustedMessage and returns
// the original envelope with its proof chain extended back to the
// bouncer's best-known key, ready to resend. The extension preserves the
// original's outer signature (§4.E): only the proof chain prefix changes.
func RepairUntrusted(bounced *message.Message, ourHistory *chain.SectionProofChain) (*message.Message, error) {
	originalBytes, dstKey, ok := bounced.Variant().BouncedUntrustedMessage()
	if !ok {
		return nil, ErrNotABounce
	}
	original, err := message.FromBytes(originalBytes)
	if err != nil {
		return nil, err
	}
	return original.ExtendProofChain(dstKey, ourHistory)
}
