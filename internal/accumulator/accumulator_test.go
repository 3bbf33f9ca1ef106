package accumulator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/accumulator"
	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
	"github.com/sectionmesh/node/internal/testutil"
)

func plainMessage(t *testing.T, keys testutil.KeySet) accumulator.PlainMessage {
	t.Helper()
	return accumulator.PlainMessage{
		Src:     authority.EmptyPrefix(),
		Dst:     authority.SectionDst(crypto.Name{}),
		DstKey:  keys.Public.PublicKey(),
		Variant: message.NewUserMessage([]byte("accumulate me")),
	}
}

func TestAddCombinesAtThresholdAndIsIdempotent(t *testing.T) {
	keys := testutil.NewKeySet(7)
	proof, _, err := testutil.SectionKeyChain(1)
	require.NoError(t, err)

	content := plainMessage(t, keys)
	signable, err := content.SignableBytes()
	require.NoError(t, err)

	acc := accumulator.New(time.Minute)

	threshold := keys.Public.Threshold()
	var combined *message.Message
	for i := 0; i <= threshold; i++ {
		share, err := keys.Shares[i].Sign(signable)
		require.NoError(t, err)

		msg, err := acc.Add(accumulator.AccumulatingMessage{
			Content:    content,
			ProofChain: proof,
			ProofShare: accumulator.ProofShare{
				PublicKeySet: keys.Public,
				Index:        share.Index(),
				Signature:    share,
			},
		}, keys.Public)
		require.NoError(t, err)
		if msg != nil {
			combined = msg
		}
	}

	require.NotNil(t, combined, "expected a combined envelope once threshold+1 shares arrived")
	assert.True(t, combined.Src().IsSection())
	assert.Equal(t, 0, acc.Len(), "bucket should be cleared once combined")

	// Resubmitting the first share after combination starts a fresh bucket
	// rather than erroring — the accumulator does not remember completed
	// keys.
	share0, err := keys.Shares[0].Sign(signable)
	require.NoError(t, err)
	_, err = acc.Add(accumulator.AccumulatingMessage{
		Content:    content,
		ProofChain: proof,
		ProofShare: accumulator.ProofShare{PublicKeySet: keys.Public, Index: share0.Index(), Signature: share0},
	}, keys.Public)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.Len())
}

func TestAddRejectsInvalidShare(t *testing.T) {
	keys := testutil.NewKeySet(7)
	other := testutil.NewKeySet(7)
	proof, _, err := testutil.SectionKeyChain(1)
	require.NoError(t, err)

	content := plainMessage(t, keys)
	signable, err := content.SignableBytes()
	require.NoError(t, err)

	wrongShare, err := other.Shares[0].Sign(signable)
	require.NoError(t, err)

	acc := accumulator.New(time.Minute)
	_, err = acc.Add(accumulator.AccumulatingMessage{
		Content:    content,
		ProofChain: proof,
		ProofShare: accumulator.ProofShare{
			PublicKeySet: keys.Public,
			Index:        wrongShare.Index(),
			Signature:    wrongShare,
		},
	}, keys.Public)
	assert.ErrorIs(t, err, accumulator.ErrInvalidShare)
}

// TestAddRejectsShareFromUnrecognisedElderSet covers spec.md §4.F's
// membership requirement: a structurally valid share whose key set is
// neither our current elder set nor chain-provably its successor must be
// rejected, even though its index and signature are both otherwise valid.
func TestAddRejectsShareFromUnrecognisedElderSet(t *testing.T) {
	current := testutil.NewKeySet(7)
	impostor := testutil.NewKeySet(7)
	proof, _, err := testutil.SectionKeyChain(1) // unrelated to either key set above
	require.NoError(t, err)

	content := plainMessage(t, current)
	signable, err := content.SignableBytes()
	require.NoError(t, err)

	share, err := impostor.Shares[0].Sign(signable)
	require.NoError(t, err)

	acc := accumulator.New(time.Minute)
	_, err = acc.Add(accumulator.AccumulatingMessage{
		Content:    content,
		ProofChain: proof,
		ProofShare: accumulator.ProofShare{
			PublicKeySet: impostor.Public,
			Index:        share.Index(),
			Signature:    share,
		},
	}, current.Public)
	assert.ErrorIs(t, err, accumulator.ErrNotElder)
	assert.Equal(t, 0, acc.Len())
}

// TestAddSupersedesBucketOnChainProvenRekey covers spec.md §4.F's rule
// that a public-key-set mismatch for an existing bucket is only resolved
// in the new set's favour when the accompanying proof chain shows the new
// set's key appears later than the bucket's current one.
func TestAddSupersedesBucketOnChainProvenRekey(t *testing.T) {
	proof, gens, err := testutil.SectionKeyChain(2)
	require.NoError(t, err)

	content := accumulator.PlainMessage{
		Src:     authority.EmptyPrefix(),
		Dst:     authority.SectionDst(crypto.Name{}),
		DstKey:  gens[0].Public.PublicKey(),
		Variant: message.NewUserMessage([]byte("rekeying mid-flight")),
	}
	signable, err := content.SignableBytes()
	require.NoError(t, err)

	acc := accumulator.New(time.Minute)

	// One share arrives under the stale (pre-rekey) key set first.
	staleShare, err := gens[0].Shares[0].Sign(signable)
	require.NoError(t, err)
	_, err = acc.Add(accumulator.AccumulatingMessage{
		Content:    content,
		ProofChain: proof,
		ProofShare: accumulator.ProofShare{PublicKeySet: gens[0].Public, Index: staleShare.Index(), Signature: staleShare},
	}, gens[0].Public)
	require.NoError(t, err)
	require.Equal(t, 1, acc.Len())

	// The rest arrive under the new key set, which the shared proof chain
	// proves supersedes the stale one; the bucket should restart under it
	// rather than reject as a mismatch.
	threshold := gens[1].Public.Threshold()
	var combined *message.Message
	for i := 0; i <= threshold; i++ {
		share, err := gens[1].Shares[i].Sign(signable)
		require.NoError(t, err)

		msg, err := acc.Add(accumulator.AccumulatingMessage{
			Content:    content,
			ProofChain: proof,
			ProofShare: accumulator.ProofShare{PublicKeySet: gens[1].Public, Index: share.Index(), Signature: share},
		}, gens[0].Public)
		require.NoError(t, err)
		if msg != nil {
			combined = msg
		}
	}

	require.NotNil(t, combined, "expected the superseding key set's shares to still combine")
	assert.True(t, combined.Src().IsSection())
}

func TestEvictIdleDropsStaleBuckets(t *testing.T) {
	keys := testutil.NewKeySet(7)
	proof, _, err := testutil.SectionKeyChain(1)
	require.NoError(t, err)

	content := plainMessage(t, keys)
	signable, err := content.SignableBytes()
	require.NoError(t, err)

	share, err := keys.Shares[0].Sign(signable)
	require.NoError(t, err)

	acc := accumulator.New(time.Minute)
	_, err = acc.Add(accumulator.AccumulatingMessage{
		Content:    content,
		ProofChain: proof,
		ProofShare: accumulator.ProofShare{PublicKeySet: keys.Public, Index: share.Index(), Signature: share},
	}, keys.Public)
	require.NoError(t, err)
	require.Equal(t, 1, acc.Len())

	evicted := acc.EvictIdle(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, acc.Len())
}
