package authority

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"

	"github.com/sectionmesh/node/internal/crypto"
)

type srcKind int

const (
	srcNode srcKind = iota
	srcSection
)

type nodeSrc struct {
	publicSigningKey ed25519.PublicKey
	age              uint8
	signature        []byte
}

type sectionSrc struct {
	prefix    Prefix
	signature []byte
}

// SrcAuthority is the tagged union of message source attestations: a
// single node signing with its Ed25519 key, or a section signing with its
// combined BLS key.
type SrcAuthority struct {
	kind    srcKind
	node    *nodeSrc
	section *sectionSrc
}

// NodeSrc builds a Node-src attestation.
func NodeSrc(pub ed25519.PublicKey, age uint8, sig []byte) SrcAuthority {
	return SrcAuthority{kind: srcNode, node: &nodeSrc{publicSigningKey: pub, age: age, signature: sig}}
}

// SectionSrc builds a Section-src attestation. sig is verified against the
// accompanying proof chain's last key, not here.
func SectionSrc(prefix Prefix, sig []byte) SrcAuthority {
	return SrcAuthority{kind: srcSection, section: &sectionSrc{prefix: prefix, signature: sig}}
}

func (s SrcAuthority) IsNode() bool    { return s.kind == srcNode }
func (s SrcAuthority) IsSection() bool { return s.kind == srcSection }

func (s SrcAuthority) NodePublicKey() (ed25519.PublicKey, bool) {
	if s.node == nil {
		return nil, false
	}
	return s.node.publicSigningKey, true
}

func (s SrcAuthority) NodeAge() uint8 {
	if s.node == nil {
		return 0
	}
	return s.node.age
}

func (s SrcAuthority) NodeSignature() []byte {
	if s.node == nil {
		return nil
	}
	return s.node.signature
}

func (s SrcAuthority) SectionPrefix() (Prefix, bool) {
	if s.section == nil {
		return Prefix{}, false
	}
	return s.section.prefix, true
}

func (s SrcAuthority) SectionSignature() []byte {
	if s.section == nil {
		return nil
	}
	return s.section.signature
}

// Equal compares two source attestations field-wise.
func (s SrcAuthority) Equal(o SrcAuthority) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case srcNode:
		return bytes.Equal(s.node.publicSigningKey, o.node.publicSigningKey) &&
			s.node.age == o.node.age &&
			bytes.Equal(s.node.signature, o.node.signature)
	case srcSection:
		return s.section.prefix.Equal(o.section.prefix) &&
			bytes.Equal(s.section.signature, o.section.signature)
	default:
		return false
	}
}

// SrcLocation is the address-space projection of a SrcAuthority, shared
// with DstLocation for routing decisions.
type SrcLocation struct {
	kind   srcKind
	name   crypto.Name
	prefix Prefix
}

func (l SrcLocation) IsNode() bool           { return l.kind == srcNode }
func (l SrcLocation) Name() crypto.Name      { return l.name }
func (l SrcLocation) Prefix() Prefix         { return l.prefix }

// SrcLocation projects a SrcAuthority to a SrcLocation: Node-src becomes
// Node(name_from_key(public_key)), Section-src becomes Section(prefix).
func (s SrcAuthority) SrcLocation() (SrcLocation, error) {
	switch s.kind {
	case srcNode:
		name, err := crypto.NameFromKey(s.node.publicSigningKey)
		if err != nil {
			return SrcLocation{}, err
		}
		return SrcLocation{kind: srcNode, name: name}, nil
	case srcSection:
		return SrcLocation{kind: srcSection, prefix: s.section.prefix}, nil
	default:
		return SrcLocation{}, ErrInvalidSrcAuthority
	}
}

type srcWire struct {
	Kind             string `json:"kind"`
	PublicSigningKey []byte `json:"public_signing_key,omitempty"`
	Age              uint8  `json:"age,omitempty"`
	Signature        []byte `json:"signature,omitempty"`
	Prefix           Prefix `json:"prefix,omitzero"`
}

// MarshalJSON implements canonical wire encoding for SrcAuthority.
func (s SrcAuthority) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case srcNode:
		return json.Marshal(srcWire{
			Kind:             "node",
			PublicSigningKey: s.node.publicSigningKey,
			Age:              s.node.age,
			Signature:        s.node.signature,
		})
	case srcSection:
		return json.Marshal(srcWire{
			Kind:      "section",
			Prefix:    s.section.prefix,
			Signature: s.section.signature,
		})
	default:
		return nil, ErrInvalidSrcAuthority
	}
}

// UnmarshalJSON implements canonical wire decoding for SrcAuthority.
func (s *SrcAuthority) UnmarshalJSON(data []byte) error {
	var w srcWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case "node":
		s.kind = srcNode
		s.node = &nodeSrc{publicSigningKey: w.PublicSigningKey, age: w.Age, signature: w.Signature}
		s.section = nil
	case "section":
		s.kind = srcSection
		s.section = &sectionSrc{prefix: w.Prefix, signature: w.Signature}
		s.node = nil
	default:
		return ErrInvalidSrcAuthority
	}
	return nil
}
