package authority_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
)

func TestPrefixMatchesAndCompatible(t *testing.T) {
	full, err := crypto.NewFullId()
	require.NoError(t, err)
	name := full.Name()

	root := authority.EmptyPrefix()
	assert.True(t, root.Matches(name))

	zero := root.PushBit(false)
	one := root.PushBit(true)
	assert.True(t, zero.IsCompatible(root))
	assert.False(t, zero.IsCompatible(one))
}

func TestPrefixParseRoundTrip(t *testing.T) {
	p := authority.EmptyPrefix().PushBit(true).PushBit(false).PushBit(true)
	parsed, err := authority.ParsePrefix(p.String())
	require.NoError(t, err)
	assert.True(t, p.Equal(parsed))
}

func TestDstLocationMatches(t *testing.T) {
	full, err := crypto.NewFullId()
	require.NoError(t, err)
	name := full.Name()

	node := authority.NodeDst(name)
	assert.True(t, node.Matches(name, authority.EmptyPrefix()))

	other, err := crypto.NewFullId()
	require.NoError(t, err)
	assert.False(t, node.Matches(other.Name(), authority.EmptyPrefix()))

	section := authority.SectionDst(name)
	assert.True(t, section.Matches(name, authority.EmptyPrefix()))

	direct := authority.DirectDst()
	assert.False(t, direct.Matches(name, authority.EmptyPrefix()))
}

func TestSrcAuthorityJSONRoundTrip(t *testing.T) {
	full, err := crypto.NewFullId()
	require.NoError(t, err)

	src := authority.NodeSrc(full.PublicId().PublicKey(), 5, []byte{1, 2, 3})
	data, err := json.Marshal(src)
	require.NoError(t, err)

	var decoded authority.SrcAuthority
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.IsNode())
	assert.Equal(t, uint8(5), decoded.NodeAge())

	loc, err := src.SrcLocation()
	require.NoError(t, err)
	assert.True(t, loc.IsNode())
}

func TestDstLocationJSONRoundTrip(t *testing.T) {
	full, err := crypto.NewFullId()
	require.NoError(t, err)

	dst := authority.SectionDst(full.Name())
	data, err := json.Marshal(dst)
	require.NoError(t, err)

	var decoded authority.DstLocation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equal(dst))
}
