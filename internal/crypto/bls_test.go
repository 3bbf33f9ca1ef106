package crypto

import (
	"testing"

	"github.com/drand/kyber/share"
	"github.com/drand/kyber/util/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestKeySet builds an n-share BLS key set the way the external
// key-generation collaborator would, for use in tests only.
func newTestKeySet(n int) (*PublicKeySet, []*SecretKeyShare) {
	threshold := Supermajority(n) + 1
	priPoly := share.NewPriPoly(blsSuite.G2(), threshold, nil, random.New())
	pubPoly := priPoly.Commit(blsSuite.G2().Point().Base())

	pub := NewPublicKeySet(pubPoly, n)
	shares := make([]*SecretKeyShare, n)
	for i, ps := range priPoly.Shares(n) {
		shares[i] = NewSecretKeyShare(ps)
	}
	return pub, shares
}

func TestCombineSignaturesAtThreshold(t *testing.T) {
	const n = 7
	pub, secrets := newTestKeySet(n)
	threshold := pub.Threshold()
	require.Equal(t, 4, threshold)

	msg := []byte("section signable view")

	shares := make(map[int]SignatureShare)
	for i := 0; i < threshold; i++ {
		s, err := secrets[i].Sign(msg)
		require.NoError(t, err)
		shares[s.Index()] = s
	}

	// Exactly threshold shares: not enough to combine.
	_, err := CombineSignatures(pub, msg, shares)
	assert.ErrorIs(t, err, ErrThresholdNotMet)

	// One more distinct share crosses threshold+1.
	s, err := secrets[threshold].Sign(msg)
	require.NoError(t, err)
	shares[s.Index()] = s

	sig, err := CombineSignatures(pub, msg, shares)
	require.NoError(t, err)
	assert.NoError(t, pub.PublicKey().Verify(sig, msg))
}

func TestPublicKeyShareVerifyRejectsWrongIndex(t *testing.T) {
	pub, secrets := newTestKeySet(7)
	msg := []byte("hello")

	sig, err := secrets[2].Sign(msg)
	require.NoError(t, err)

	wrongShare := pub.PublicKeyShare(3)
	assert.Error(t, wrongShare.Verify(msg, sig))

	rightShare := pub.PublicKeyShare(sig.Index())
	assert.NoError(t, rightShare.Verify(msg, sig))
}

func TestSectionKeyRoundTrip(t *testing.T) {
	pub, _ := newTestKeySet(7)
	key := pub.PublicKey()

	b := key.Bytes()
	decoded, err := NewSectionKeyFromBytes(b)
	require.NoError(t, err)
	assert.True(t, key.Equal(decoded))
}
