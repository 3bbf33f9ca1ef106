// Package testutil provides fixtures shared by the core packages' tests:
// BLS key sets and fully-signed proof chains. Nothing here is part of the
// production call path.
package testutil

import (
	"fmt"

	"github.com/drand/kyber/share"
	"github.com/drand/kyber/util/random"

	bls12381 "github.com/drand/kyber-bls12381"

	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
)

var testSuite = bls12381.NewBLS12381Suite()

// KeySet is a test-only bundle of a BLS public key set and every one of its
// elders' secret shares.
type KeySet struct {
	Public *crypto.PublicKeySet
	Shares []*crypto.SecretKeyShare
}

// NewKeySet builds an n-elder BLS key set the way the external
// key-generation collaborator would.
func NewKeySet(n int) KeySet {
	threshold := crypto.Supermajority(n) + 1
	priPoly := share.NewPriPoly(testSuite.G2(), threshold, nil, random.New())
	pubPoly := priPoly.Commit(testSuite.G2().Point().Base())

	pub := crypto.NewPublicKeySet(pubPoly, n)
	shares := make([]*crypto.SecretKeyShare, n)
	for i, ps := range priPoly.Shares(n) {
		shares[i] = crypto.NewSecretKeyShare(ps)
	}
	return KeySet{Public: pub, Shares: shares}
}

// Sign produces a full, combined BLS signature over msg using this key
// set's elders (as many as are needed to cross threshold).
func (k KeySet) Sign(msg []byte) ([]byte, error) {
	threshold := k.Public.Threshold()
	partials := make(map[int]crypto.SignatureShare, threshold+1)
	for i := 0; i <= threshold && i < len(k.Shares); i++ {
		s, err := k.Shares[i].Sign(msg)
		if err != nil {
			return nil, fmt.Errorf("partial sign: %w", err)
		}
		partials[s.Index()] = s
	}
	return crypto.CombineSignatures(k.Public, msg, partials)
}

// SectionKeyChain builds a SectionProofChain of generations keys (that is,
// generations-1 successive re-keyings), each new key signed by its
// predecessor's combined secret key, and returns the
// chain plus the KeySet backing every generation (for further signing).
func SectionKeyChain(generations int) (*chain.SectionProofChain, []KeySet, error) {
	if generations < 1 {
		return nil, nil, fmt.Errorf("need at least one generation")
	}
	gens := make([]KeySet, generations)
	for i := range gens {
		gens[i] = NewKeySet(7)
	}

	proof := chain.NewSectionProofChain(gens[0].Public.PublicKey())
	for i := 1; i < generations; i++ {
		nextKey := gens[i].Public.PublicKey()
		sig, err := gens[i-1].Sign(nextKey.Bytes())
		if err != nil {
			return nil, nil, fmt.Errorf("sign generation %d: %w", i, err)
		}
		if err := proof.Push(nextKey, sig); err != nil {
			return nil, nil, fmt.Errorf("push generation %d: %w", i, err)
		}
	}
	return proof, gens, nil
}
