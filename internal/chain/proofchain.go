// Package chain implements the section proof chain: a compact, verifiable
// witness that the current section key is causally linked to some
// historically trusted key.
package chain

import (
	"bytes"
	"encoding/json"

	"github.com/sectionmesh/node/internal/crypto"
)

// link is one entry in the chain: a key and the BLS signature its immediate
// predecessor produced over it. The root link's sig is never verified.
type link struct {
	key crypto.SectionKey
	sig []byte
}

// SectionProofChain is an ordered sequence of keys where each non-root key
// is signed by its immediate predecessor.
type SectionProofChain struct {
	links []link
}

// NewSectionProofChain starts a chain at a single, trusted root key.
func NewSectionProofChain(root crypto.SectionKey) *SectionProofChain {
	return &SectionProofChain{links: []link{{key: root}}}
}

// First returns the chain's root key.
func (c *SectionProofChain) First() crypto.SectionKey {
	return c.links[0].key
}

// LastKey returns the most recent key in the chain.
func (c *SectionProofChain) LastKey() crypto.SectionKey {
	return c.links[len(c.links)-1].key
}

// Len returns the number of keys in the chain.
func (c *SectionProofChain) Len() int {
	return len(c.links)
}

// Keys returns every key in the chain, root first.
func (c *SectionProofChain) Keys() []crypto.SectionKey {
	out := make([]crypto.SectionKey, len(c.links))
	for i, l := range c.links {
		out[i] = l.key
	}
	return out
}

// HasKey reports linear membership of k in the chain.
func (c *SectionProofChain) HasKey(k crypto.SectionKey) bool {
	return c.indexOf(k) != -1
}

// IndexOf returns k's position in the chain (0 is the root), or -1 if k
// does not appear. Used to order two keys that both appear in the same
// chain, e.g. when deciding whether a re-key supersedes an older one.
func (c *SectionProofChain) IndexOf(k crypto.SectionKey) int {
	return c.indexOf(k)
}

// Push appends new_key, signed by the chain's current last key, iff the
// signature verifies.
func (c *SectionProofChain) Push(newKey crypto.SectionKey, sig []byte) error {
	if err := c.LastKey().Verify(sig, newKey.Bytes()); err != nil {
		return ErrInvalidChain
	}
	c.links = append(c.links, link{key: newKey, sig: sig})
	return nil
}

// Slice returns the suffix of the chain starting at index from.
func (c *SectionProofChain) Slice(from int) (*SectionProofChain, error) {
	if from < 0 || from >= len(c.links) {
		return nil, ErrKeyNotFound
	}
	out := make([]link, len(c.links)-from)
	copy(out, c.links[from:])
	return &SectionProofChain{links: out}, nil
}

// Extend stitches donor's keys onto the front of a copy of c so the result
// starts at newFirst and ends at c's current last key. newFirst must appear
// in donor at or before c's own first key.
func (c *SectionProofChain) Extend(newFirst crypto.SectionKey, donor *SectionProofChain) (*SectionProofChain, error) {
	if newFirst.Equal(c.First()) {
		out := make([]link, len(c.links))
		copy(out, c.links)
		return &SectionProofChain{links: out}, nil
	}

	j := donor.indexOf(c.First())
	if j == -1 {
		return nil, ErrKeyNotFound
	}
	i := donor.indexOf(newFirst)
	if i == -1 {
		return nil, ErrKeyNotFound
	}
	if i > j {
		return nil, ErrIncompatible
	}

	out := make([]link, 0, (j-i)+len(c.links))
	out = append(out, donor.links[i:j]...)
	out = append(out, c.links...)
	return &SectionProofChain{links: out}, nil
}

// CheckTrust classifies the chain against a set of trusted anchor keys.
// When multiple anchors appear in the chain, the earliest one (closest to
// the root) determines the outcome: CheckTrust walks forward from there.
func (c *SectionProofChain) CheckTrust(trusted []crypto.SectionKey) TrustStatus {
	anchorIdx := -1
	for i, l := range c.links {
		for _, tk := range trusted {
			if l.key.Equal(tk) {
				anchorIdx = i
				break
			}
		}
		if anchorIdx != -1 {
			break
		}
	}

	if anchorIdx != -1 {
		if c.verifyLinksFrom(anchorIdx) {
			return Trusted
		}
		return Invalid
	}

	if c.verifyLinksFrom(0) {
		return Unknown
	}
	return Invalid
}

func (c *SectionProofChain) verifyLinksFrom(start int) bool {
	for i := start + 1; i < len(c.links); i++ {
		if err := c.links[i-1].key.Verify(c.links[i].sig, c.links[i].key.Bytes()); err != nil {
			return false
		}
	}
	return true
}

// Equal reports whether two chains carry the same keys and link
// signatures, in order. A nil chain equals only another nil chain.
func (c *SectionProofChain) Equal(o *SectionProofChain) bool {
	if c == nil || o == nil {
		return c == o
	}
	if len(c.links) != len(o.links) {
		return false
	}
	for i := range c.links {
		if !c.links[i].key.Equal(o.links[i].key) {
			return false
		}
		if !bytes.Equal(c.links[i].sig, o.links[i].sig) {
			return false
		}
	}
	return true
}

func (c *SectionProofChain) indexOf(k crypto.SectionKey) int {
	for i, l := range c.links {
		if l.key.Equal(k) {
			return i
		}
	}
	return -1
}

// WireLink is one link's wire representation: a key and the signature its
// predecessor produced over it (empty for the root link).
type WireLink struct {
	Key crypto.SectionKey `json:"key"`
	Sig []byte            `json:"sig,omitempty"`
}

// MarshalJSON implements canonical wire encoding for SectionProofChain.
func (c *SectionProofChain) MarshalJSON() ([]byte, error) {
	wire := make([]WireLink, len(c.links))
	for i, l := range c.links {
		wire[i] = WireLink{Key: l.key, Sig: l.sig}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements canonical wire decoding for SectionProofChain.
func (c *SectionProofChain) UnmarshalJSON(data []byte) error {
	var wire []WireLink
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if len(wire) == 0 {
		return ErrEmptyChain
	}
	links := make([]link, len(wire))
	for i, w := range wire {
		links[i] = link{key: w.Key, sig: w.Sig}
	}
	c.links = links
	return nil
}
