package message

import (
	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
)

// signableView is the exact struct fed to every signer and verifier: the
// parts of a message that participate in its signature. src is
// deliberately omitted (§4.D) — it carries its own attestation and (for
// Node-src) is verifiable from the payload signature and public key;
// recomputing from src would create a signing-key-identity cycle.
type signableView struct {
	Dst     authority.DstLocation `json:"dst"`
	DstKey  crypto.SectionKey     `json:"dst_key,omitzero"`
	Variant Variant               `json:"variant"`
}

// SignableBytes returns the canonical bytes that must be signed and
// verified for a message bound for dst, with destination-key hint dstKey
// and payload variant.
func SignableBytes(dst authority.DstLocation, dstKey crypto.SectionKey, variant Variant) ([]byte, error) {
	return CanonicalizeJSON(signableView{Dst: dst, DstKey: dstKey, Variant: variant})
}
