package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
	"github.com/sectionmesh/node/internal/testutil"
)

func TestSingleSrcRoundTrip(t *testing.T) {
	full, err := crypto.NewFullId()
	require.NoError(t, err)

	dst := authority.SectionDst(full.Name())
	variant := message.NewUserMessage([]byte("hello section"))

	msg, err := message.SingleSrc(full, 10, dst, variant, nil, crypto.SectionKey{})
	require.NoError(t, err)

	decoded, err := message.FromBytes(msg.Serialize())
	require.NoError(t, err)
	assert.True(t, msg.Equal(decoded))

	signable, err := decoded.SignableBytes()
	require.NoError(t, err)
	pub, ok := decoded.Src().NodePublicKey()
	require.True(t, ok)
	assert.True(t, crypto.NewEd25519Verifier().Verify(pub, signable, decoded.Src().NodeSignature()))
}

func TestSectionSrcRequiresProofChain(t *testing.T) {
	keys := testutil.NewKeySet(7)
	dst := authority.SectionDst(crypto.Name{})
	variant := message.NewUserMessage([]byte("section gossip"))

	_, err := message.SectionSrc(authority.EmptyPrefix(), []byte("sig"), dst, variant, nil, crypto.SectionKey{})
	assert.ErrorIs(t, err, message.ErrInvalidMessage)

	proof := nonTrivialProof(t)
	sig, err := keys.Sign(mustSignable(t, dst, variant))
	require.NoError(t, err)

	msg, err := message.SectionSrc(authority.EmptyPrefix(), sig, dst, variant, proof, crypto.SectionKey{})
	require.NoError(t, err)
	assert.True(t, msg.Src().IsSection())
}

func TestExtendProofChainPreservesSignature(t *testing.T) {
	proof, gens, err := testutil.SectionKeyChain(4)
	require.NoError(t, err)

	tail, err := proof.Slice(2)
	require.NoError(t, err)

	dst := authority.SectionDst(crypto.Name{})
	variant := message.NewUserMessage([]byte("payload"))
	signable, err := message.SignableBytes(dst, crypto.SectionKey{}, variant)
	require.NoError(t, err)

	sig, err := gens[3].Sign(signable)
	require.NoError(t, err)

	msg, err := message.SectionSrc(authority.EmptyPrefix(), sig, dst, variant, tail, crypto.SectionKey{})
	require.NoError(t, err)

	extended, err := msg.ExtendProofChain(gens[0].Public.PublicKey(), proof)
	require.NoError(t, err)

	assert.Equal(t, proof.Len(), extended.ProofChain().Len())
	assert.Equal(t, string(msg.Src().SectionSignature()), string(extended.Src().SectionSignature()))
}

func nonTrivialProof(t *testing.T) *chain.SectionProofChain {
	t.Helper()
	proof, _, err := testutil.SectionKeyChain(1)
	require.NoError(t, err)
	return proof
}

func mustSignable(t *testing.T, dst authority.DstLocation, variant message.Variant) []byte {
	t.Helper()
	b, err := message.SignableBytes(dst, crypto.SectionKey{}, variant)
	require.NoError(t, err)
	return b
}
