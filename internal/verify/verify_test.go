package verify_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
	"github.com/sectionmesh/node/internal/testutil"
	"github.com/sectionmesh/node/internal/verify"
)

func TestVerifyNodeSrcFull(t *testing.T) {
	full, err := crypto.NewFullId()
	require.NoError(t, err)

	dst := authority.SectionDst(crypto.Name{})
	variant := message.NewUserMessage([]byte("hello"))
	msg, err := message.SingleSrc(full, 5, dst, variant, nil, crypto.SectionKey{})
	require.NoError(t, err)

	status, err := verify.Verify(msg, nil)
	require.NoError(t, err)
	assert.Equal(t, verify.Full, status)
}

func TestVerifySectionSrcTrustedAndUnknown(t *testing.T) {
	proof, gens, err := testutil.SectionKeyChain(3)
	require.NoError(t, err)

	dst := authority.SectionDst(crypto.Name{})
	variant := message.NewUserMessage([]byte("section news"))
	signable, err := message.SignableBytes(dst, crypto.SectionKey{}, variant)
	require.NoError(t, err)

	sig, err := gens[2].Sign(signable)
	require.NoError(t, err)

	msg, err := message.SectionSrc(authority.EmptyPrefix(), sig, dst, variant, proof, crypto.SectionKey{})
	require.NoError(t, err)

	anchors := []verify.TrustedAnchor{{Prefix: authority.EmptyPrefix(), Key: gens[0].Public.PublicKey()}}
	status, err := verify.Verify(msg, anchors)
	require.NoError(t, err)
	assert.Equal(t, verify.Full, status)

	status, err = verify.Verify(msg, nil)
	require.NoError(t, err)
	assert.Equal(t, verify.Unknown, status)
}

func TestVerifySectionSrcFailedSignature(t *testing.T) {
	proof, gens, err := testutil.SectionKeyChain(2)
	require.NoError(t, err)

	dst := authority.SectionDst(crypto.Name{})
	variant := message.NewUserMessage([]byte("tampered"))
	wrongSignable, err := message.SignableBytes(dst, crypto.SectionKey{}, message.NewUserMessage([]byte("other")))
	require.NoError(t, err)

	badSig, err := gens[1].Sign(wrongSignable)
	require.NoError(t, err)

	msg, err := message.SectionSrc(authority.EmptyPrefix(), badSig, dst, variant, proof, crypto.SectionKey{})
	require.NoError(t, err)

	_, err = verify.Verify(msg, nil)
	assert.ErrorIs(t, err, message.ErrFailedSignature)
}

// TestVerifySectionSrcForgedInternalLinkIsUntrusted covers spec.md's
// concrete scenario of a proof chain whose signature itself verifies but
// whose internal link does not: CheckTrust must classify it Invalid, and
// Verify must surface that as ErrUntrustedMessage rather than Unknown.
func TestVerifySectionSrcForgedInternalLinkIsUntrusted(t *testing.T) {
	proof, gens, err := testutil.SectionKeyChain(3)
	require.NoError(t, err)

	data, err := json.Marshal(proof)
	require.NoError(t, err)
	var wire []chain.WireLink
	require.NoError(t, json.Unmarshal(data, &wire))
	wire[len(wire)-1].Sig[0] ^= 0xFF
	tampered, err := json.Marshal(wire)
	require.NoError(t, err)
	forged := &chain.SectionProofChain{}
	require.NoError(t, json.Unmarshal(tampered, forged))

	dst := authority.SectionDst(crypto.Name{})
	variant := message.NewUserMessage([]byte("forged"))
	signable, err := message.SignableBytes(dst, crypto.SectionKey{}, variant)
	require.NoError(t, err)

	sig, err := gens[2].Sign(signable)
	require.NoError(t, err)

	msg, err := message.SectionSrc(authority.EmptyPrefix(), sig, dst, variant, forged, crypto.SectionKey{})
	require.NoError(t, err)

	anchors := []verify.TrustedAnchor{{Prefix: authority.EmptyPrefix(), Key: gens[0].Public.PublicKey()}}
	_, err = verify.Verify(msg, anchors)
	assert.ErrorIs(t, err, message.ErrUntrustedMessage)
}

func TestVerifySectionSrcMissingProofChainIsInvalidMessage(t *testing.T) {
	dst := authority.SectionDst(crypto.Name{})
	variant := message.NewUserMessage([]byte("x"))

	_, err := message.SectionSrc(authority.EmptyPrefix(), []byte("sig"), dst, variant, nil, crypto.SectionKey{})
	assert.ErrorIs(t, err, message.ErrInvalidMessage)
}
