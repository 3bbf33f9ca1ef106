package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullIdSignAndVerify(t *testing.T) {
	full, err := NewFullId()
	require.NoError(t, err)

	msg := []byte("signable view bytes")
	sig, err := full.Sign(msg)
	require.NoError(t, err)

	assert.True(t, full.PublicId().Verify(msg, sig))
	assert.False(t, full.PublicId().Verify([]byte("other bytes"), sig))
}

func TestNameFromKeyMatchesPublicKeyBytes(t *testing.T) {
	full, err := NewFullId()
	require.NoError(t, err)

	name := full.Name()
	assert.Equal(t, []byte(full.PublicId().PublicKey()), name.Bytes())
}

func TestPublicIdEqual(t *testing.T) {
	a, err := NewFullId()
	require.NoError(t, err)
	b, err := NewFullId()
	require.NoError(t, err)

	assert.True(t, a.PublicId().Equal(a.PublicId()))
	assert.False(t, a.PublicId().Equal(b.PublicId()))
}
