// Package verify implements the trust verifier: classifying an inbound
// envelope as fully trusted, merely unverifiable, or outright invalid
// against a local set of trusted (prefix, key) anchors.
package verify

import (
	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
)

// Status classifies a verified envelope.
type Status int

const (
	// Full: the envelope's signature verifies and chains to a trusted
	// anchor (or is a directly-verified Node-src message). Safe to act on.
	Full Status = iota
	// Unknown: the signature verifies but no trusted anchor links to it;
	// a peer with a longer chain may be able to resolve it.
	Unknown
)

func (s Status) String() string {
	if s == Full {
		return "Full"
	}
	return "Unknown"
}

// TrustedAnchor pairs a section prefix with a key we are willing to trust
// for messages whose source prefix is compatible with it.
type TrustedAnchor struct {
	Prefix authority.Prefix
	Key    crypto.SectionKey
}

var ed25519Verifier = crypto.NewEd25519Verifier()

// Verify classifies envelope against anchors, per spec.md §4.G. It never
// mutates envelope or anchors.
func Verify(envelope *message.Message, anchors []TrustedAnchor) (Status, error) {
	signable, err := envelope.SignableBytes()
	if err != nil {
		return 0, err
	}

	src := envelope.Src()
	switch {
	case src.IsNode():
		return verifyNodeSrc(src, signable, anchors)
	case src.IsSection():
		return verifySectionSrc(envelope, src, signable, anchors)
	default:
		return 0, message.ErrInvalidMessage
	}
}

func verifyNodeSrc(src authority.SrcAuthority, signable []byte, anchors []TrustedAnchor) (Status, error) {
	pub, ok := src.NodePublicKey()
	if !ok {
		return 0, message.ErrInvalidMessage
	}
	if !ed25519Verifier.Verify(pub, signable, src.NodeSignature()) {
		return 0, message.ErrFailedSignature
	}

	// Restricting trusted anchors to the sender's own name-prefix mirrors
	// the Section-src path; a Node-src message carries no further chain to
	// check trust against, so the restriction is a no-op on the outcome —
	// the Ed25519 signature alone attests the message. Variant-specific
	// inner verification (e.g. a NodeApproval's attached elders-info proof)
	// is performed by the dispatching caller, not here.
	if _, err := crypto.NameFromKey(pub); err != nil {
		return 0, err
	}
	return Full, nil
}

func verifySectionSrc(envelope *message.Message, src authority.SrcAuthority, signable []byte, anchors []TrustedAnchor) (Status, error) {
	proofChain := envelope.ProofChain()
	if proofChain == nil {
		return 0, message.ErrInvalidMessage
	}
	if err := proofChain.LastKey().Verify(src.SectionSignature(), signable); err != nil {
		return 0, message.ErrFailedSignature
	}

	prefix, _ := src.SectionPrefix()
	restricted := restrictAnchors(anchors, prefix)
	keys := make([]crypto.SectionKey, len(restricted))
	for i, a := range restricted {
		keys[i] = a.Key
	}

	switch proofChain.CheckTrust(keys) {
	case chain.Trusted:
		return Full, nil
	case chain.Unknown:
		return Unknown, nil
	default:
		return 0, message.ErrUntrustedMessage
	}
}

func restrictAnchors(anchors []TrustedAnchor, prefix authority.Prefix) []TrustedAnchor {
	out := make([]TrustedAnchor, 0, len(anchors))
	for _, a := range anchors {
		if a.Prefix.IsCompatible(prefix) {
			out = append(out, a)
		}
	}
	return out
}
