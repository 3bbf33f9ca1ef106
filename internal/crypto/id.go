package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// NameSize is the length in bytes of a node's XOR-name.
const NameSize = ed25519.PublicKeySize

// Name is a node's XOR-name: the 32 bytes of its Ed25519 public signing key.
type Name [NameSize]byte

// NameFromKey derives a node's XOR-name from its public signing key.
func NameFromKey(pub ed25519.PublicKey) (Name, error) {
	var n Name
	if len(pub) != NameSize {
		return n, ErrInvalidPublicKey
	}
	copy(n[:], pub)
	return n, nil
}

func (n Name) String() string {
	return hex.EncodeToString(n[:])
}

func (n Name) Bytes() []byte {
	return n[:]
}

// MarshalText implements encoding.TextMarshaler so a Name serialises as a
// compact hex string instead of a JSON array of 32 numbers.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Name) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decode name: %w", err)
	}
	if len(decoded) != NameSize {
		return ErrInvalidPublicKey
	}
	copy(n[:], decoded)
	return nil
}

// PublicId is a node's public identity: the pieces of identity that can be
// shared and verified without revealing the signing key. Grounded on
// original_source/src/id.rs's PublicId/P2pNode distinction.
type PublicId struct {
	name      Name
	publicKey ed25519.PublicKey
}

// NewPublicId builds a PublicId from a public signing key.
func NewPublicId(pub ed25519.PublicKey) (PublicId, error) {
	name, err := NameFromKey(pub)
	if err != nil {
		return PublicId{}, err
	}
	return PublicId{name: name, publicKey: pub}, nil
}

func (p PublicId) Name() Name                    { return p.name }
func (p PublicId) PublicKey() ed25519.PublicKey   { return p.publicKey }
func (p PublicId) Verify(msg, sig []byte) bool    { return NewEd25519Verifier().Verify(p.publicKey, msg, sig) }
func (p PublicId) Equal(o PublicId) bool          { return p.name == o.name }

// FullId is a node's full identity: its PublicId plus the private signing
// key needed to produce Node-src signatures.
type FullId struct {
	public PublicId
	signer *Ed25519Signer
}

// NewFullId generates a fresh node identity.
func NewFullId() (FullId, error) {
	kp, err := NewEd25519KeyPair()
	if err != nil {
		return FullId{}, err
	}
	return NewFullIdFromKeyPair(kp)
}

// NewFullIdFromKeyPair wraps an existing key pair as a full node identity.
func NewFullIdFromKeyPair(kp *Ed25519KeyPair) (FullId, error) {
	public, err := NewPublicId(kp.PublicKey)
	if err != nil {
		return FullId{}, err
	}
	return FullId{public: public, signer: NewEd25519Signer(kp)}, nil
}

func (f FullId) PublicId() PublicId { return f.public }
func (f FullId) Name() Name         { return f.public.name }

// Sign produces an Ed25519 signature over msg using this identity's secret
// signing key.
func (f FullId) Sign(msg []byte) ([]byte, error) {
	return f.signer.Sign(msg)
}
