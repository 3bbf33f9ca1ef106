package message_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
)

func TestVariantJSONRoundTrip(t *testing.T) {
	cases := []message.Variant{
		message.NewUserMessage([]byte("hi")),
		message.NewBootstrapRequest(crypto.Name{}),
		message.NewJoinRequest([]byte("proofs")),
		message.NewParsecRequest(3, []byte("gossip")),
		message.NewBouncedUnknownMessage([]byte("orig"), 7),
	}

	for _, v := range cases {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var decoded message.Variant
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, v.Equal(decoded), "tag %s", v.Tag())
	}
}

func TestVariantRequiresProofChain(t *testing.T) {
	assert.False(t, message.NewUserMessage(nil).RequiresProofChain())
	assert.True(t, message.NewGenesisUpdate(message.ProvenEldersInfo{}).RequiresProofChain())
}

func TestBootstrapResponseJoinRoundTrip(t *testing.T) {
	info := message.EldersInfo{
		Prefix:  authority.EmptyPrefix(),
		Version: 1,
		Elders: []message.ElderInfo{
			{Age: 8},
		},
	}
	v := message.NewBootstrapResponseJoin(info)

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded message.Variant
	require.NoError(t, json.Unmarshal(data, &decoded))

	got, ok := decoded.BootstrapResponseJoin()
	require.True(t, ok)
	assert.Equal(t, info.Version, got.Version)
}
