package crypto

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/drand/kyber"
	bls12381 "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/share"
	"github.com/drand/kyber/sign/bls"
	"github.com/drand/kyber/sign/tbls"
)

// blsSuite is the pairing used for every section key in the process. BLS
// public keys live on G2, signatures on G1 (see
// github.com/drand/kyber/sign/bls's SchemeOnG1).
var (
	blsSuite  = bls12381.NewBLS12381Suite()
	blsSingle = bls.NewSchemeOnG1(blsSuite)
	blsThresh = tbls.NewThresholdSchemeOnG1(blsSuite)
)

// Supermajority returns the BLS threshold t for a key set of size n, per
// spec §Glossary: t = floor(2n/3); combining a signature requires t+1
// distinct shares.
func Supermajority(n int) int {
	return (2 * n) / 3
}

// SectionKey is an opaque BLS public key. Equality is byte equality.
type SectionKey struct {
	point kyber.Point
}

// NewSectionKeyFromBytes decodes a section key from its marshalled form.
func NewSectionKeyFromBytes(b []byte) (SectionKey, error) {
	p := blsSuite.G2().Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return SectionKey{}, fmt.Errorf("decode section key: %w", err)
	}
	return SectionKey{point: p}, nil
}

// Bytes returns the marshalled form of the key.
func (k SectionKey) Bytes() []byte {
	if k.point == nil {
		return nil
	}
	b, _ := k.point.MarshalBinary()
	return b
}

// Equal reports byte equality between two section keys.
func (k SectionKey) Equal(o SectionKey) bool {
	if k.point == nil || o.point == nil {
		return k.point == nil && o.point == nil
	}
	return k.point.Equal(o.point)
}

// Verify checks a combined BLS signature over msg under this key.
func (k SectionKey) Verify(sig, msg []byte) error {
	if k.point == nil {
		return ErrInvalidPublicKey
	}
	if err := blsSingle.Verify(k.point, msg, sig); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

func (k SectionKey) String() string {
	return base64.StdEncoding.EncodeToString(k.Bytes())
}

func (k SectionKey) IsZero() bool {
	return k.point == nil
}

// MarshalText implements encoding.TextMarshaler.
func (k SectionKey) MarshalText() ([]byte, error) {
	if k.point == nil {
		return []byte{}, nil
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SectionKey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = SectionKey{}
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decode section key: %w", err)
	}
	decoded, err := NewSectionKeyFromBytes(b)
	if err != nil {
		return err
	}
	*k = decoded
	return nil
}

// PublicKeyShare is one elder's share of a PublicKeySet, used to verify that
// elder's individual partial signature.
type PublicKeyShare struct {
	index int
	point kyber.Point
}

// Verify checks share against msg using this public key share.
func (pk PublicKeyShare) Verify(msg []byte, share SignatureShare) error {
	if share.Index() != pk.index {
		return ErrInvalidSignature
	}
	if err := blsSingle.Verify(pk.point, msg, share.Value()); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// PublicKeySet is a BLS public-key-set of size n with threshold
// t = Supermajority(n). It is produced by the external key-generation
// collaborator (§1) and consumed here.
type PublicKeySet struct {
	poly *share.PubPoly
	n    int
}

// NewPublicKeySet wraps a public commitment polynomial of group size n.
func NewPublicKeySet(poly *share.PubPoly, n int) *PublicKeySet {
	return &PublicKeySet{poly: poly, n: n}
}

// PublicKey returns the set's combined public key.
func (s *PublicKeySet) PublicKey() SectionKey {
	return SectionKey{point: s.poly.Commit()}
}

// Threshold returns t = Supermajority(n); combining requires t+1 shares.
func (s *PublicKeySet) Threshold() int {
	return Supermajority(s.n)
}

// N returns the key set's size (elder count it was generated for).
func (s *PublicKeySet) N() int {
	return s.n
}

// PublicKeyShare returns the public share at index i, used to verify the
// partial signature contributed by elder i.
func (s *PublicKeySet) PublicKeyShare(i int) PublicKeyShare {
	ps := s.poly.Eval(i)
	return PublicKeyShare{index: ps.I, point: ps.V}
}

// Equal reports whether two key sets share the same combined public key.
func (s *PublicKeySet) Equal(o *PublicKeySet) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.PublicKey().Equal(o.PublicKey())
}

// SecretKeyShare is one elder's secret share of the section's BLS key,
// produced by the key-generation collaborator.
type SecretKeyShare struct {
	pri *share.PriShare
}

// NewSecretKeyShare wraps a private Lagrange share.
func NewSecretKeyShare(pri *share.PriShare) *SecretKeyShare {
	return &SecretKeyShare{pri: pri}
}

// Index returns this share's elder index within the key set.
func (sk *SecretKeyShare) Index() int {
	return sk.pri.I
}

// Sign produces a tagged partial BLS signature over msg.
func (sk *SecretKeyShare) Sign(msg []byte) (SignatureShare, error) {
	raw, err := blsThresh.Sign(sk.pri, msg)
	if err != nil {
		return nil, fmt.Errorf("partial sign: %w", err)
	}
	return SignatureShare(raw), nil
}

// SignatureShare is a threshold BLS partial signature: a 2-byte big-endian
// index followed by the raw signature point, matching
// github.com/drand/kyber/sign/tbls's SigShare wire form.
type SignatureShare []byte

// Index returns the elder index this share was produced by.
func (s SignatureShare) Index() int {
	if len(s) < 2 {
		return -1
	}
	return int(binary.BigEndian.Uint16(s[:2]))
}

// Value returns the raw signature point, without the index prefix.
func (s SignatureShare) Value() []byte {
	if len(s) < 2 {
		return nil
	}
	return s[2:]
}

// CombineSignatures recovers a full BLS signature from shares, succeeding
// iff at least threshold+1 distinct valid shares are supplied and the
// recovered signature verifies under the set's combined public key.
func CombineSignatures(pub *PublicKeySet, msg []byte, shares map[int]SignatureShare) ([]byte, error) {
	t := pub.Threshold()
	if len(shares) < t+1 {
		return nil, ErrThresholdNotMet
	}
	raw := make([][]byte, 0, len(shares))
	for _, s := range shares {
		raw = append(raw, []byte(s))
	}
	sig, err := blsThresh.Recover(pub.poly, msg, raw, t+1, pub.n)
	if err != nil {
		return nil, fmt.Errorf("combine signatures: %w", err)
	}
	if err := pub.PublicKey().Verify(sig, msg); err != nil {
		return nil, ErrInvalidSignature
	}
	return sig, nil
}
