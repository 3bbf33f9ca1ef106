package bounce_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/bounce"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
	"github.com/sectionmesh/node/internal/testutil"
)

func TestUnknownAndRepairRoundTrip(t *testing.T) {
	sender, err := crypto.NewFullId()
	require.NoError(t, err)
	bouncer, err := crypto.NewFullId()
	require.NoError(t, err)

	original, err := message.SingleSrc(sender, 3, authority.SectionDst(crypto.Name{}), message.NewUserMessage([]byte("payload")), nil, crypto.SectionKey{})
	require.NoError(t, err)

	bounced, err := bounce.Unknown(original, 42, bouncer, 9)
	require.NoError(t, err)
	assert.Equal(t, message.TagBouncedUnknownMessage, bounced.Variant().Tag())

	originalBytes, version, err := bounce.RepairUnknown(bounced)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), version)

	decoded, err := message.FromBytes(originalBytes)
	require.NoError(t, err)
	assert.True(t, original.Equal(decoded))
}

func TestUntrustedAndRepairExtendsProofChain(t *testing.T) {
	proof, gens, err := testutil.SectionKeyChain(4)
	require.NoError(t, err)

	sender, err := crypto.NewFullId()
	require.NoError(t, err)
	bouncer, err := crypto.NewFullId()
	require.NoError(t, err)

	tail, err := proof.Slice(2)
	require.NoError(t, err)

	dst := authority.SectionDst(crypto.Name{})
	variant := message.NewUserMessage([]byte("section update"))
	signable, err := message.SignableBytes(dst, crypto.SectionKey{}, variant)
	require.NoError(t, err)
	sig, err := gens[3].Sign(signable)
	require.NoError(t, err)

	original, err := message.SectionSrc(authority.EmptyPrefix(), sig, dst, variant, tail, crypto.SectionKey{})
	require.NoError(t, err)

	bounced, err := bounce.Untrusted(original, gens[0].Public.PublicKey(), bouncer, 9)
	require.NoError(t, err)
	assert.Equal(t, message.TagBouncedUntrustedMessage, bounced.Variant().Tag())

	repaired, err := bounce.RepairUntrusted(bounced, proof)
	require.NoError(t, err)
	assert.Equal(t, proof.Len(), repaired.ProofChain().Len())
	assert.Equal(t, string(original.Src().SectionSignature()), string(repaired.Src().SectionSignature()))
}

func TestBounceOfBounceIsRefused(t *testing.T) {
	sender, err := crypto.NewFullId()
	require.NoError(t, err)

	bouncedOriginal, err := message.SingleSrc(sender, 1, authority.DirectDst(), message.NewBouncedUnknownMessage([]byte("x"), 1), nil, crypto.SectionKey{})
	require.NoError(t, err)

	_, err = bounce.Unknown(bouncedOriginal, 2, sender, 1)
	assert.ErrorIs(t, err, bounce.ErrBounceLoop)
}
