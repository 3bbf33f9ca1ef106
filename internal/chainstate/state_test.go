package chainstate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chainstate"
	"github.com/sectionmesh/node/internal/crypto"
	"github.com/sectionmesh/node/internal/message"
	"github.com/sectionmesh/node/internal/testutil"
)

func genesisElders(prefix authority.Prefix) message.EldersInfo {
	return message.EldersInfo{Prefix: prefix, Version: 1, Elders: nil}
}

func TestGenesisThenSectionInfoAdvancesHistory(t *testing.T) {
	gen0 := testutil.NewKeySet(7)
	gen1 := testutil.NewKeySet(7)

	s := chainstate.New()
	require.NoError(t, s.Apply(chainstate.Genesis{
		Key:    gen0.Public.PublicKey(),
		Elders: genesisElders(authority.EmptyPrefix()),
	}))
	assert.Equal(t, 1, s.History().Len())

	newKey := gen1.Public.PublicKey()
	require.NoError(t, s.Apply(chainstate.OurKey{Prefix: authority.EmptyPrefix(), Key: newKey}))

	sig, err := gen0.Sign(newKey.Bytes())
	require.NoError(t, err)

	require.NoError(t, s.Apply(chainstate.SectionInfo{
		Elders:         genesisElders(authority.EmptyPrefix()),
		LinkSig:        sig,
		PublicKeySet:   gen1.Public,
		SecretKeyShare: gen1.Shares[0],
	}))

	assert.Equal(t, 2, s.History().Len())
	assert.True(t, s.History().LastKey().Equal(gen1.Public.PublicKey()))
	assert.True(t, s.PublicKeySet().Equal(gen1.Public))
}

func TestSectionInfoWithoutPendingKeyFails(t *testing.T) {
	gen0 := testutil.NewKeySet(7)
	s := chainstate.New()
	require.NoError(t, s.Apply(chainstate.Genesis{Key: gen0.Public.PublicKey(), Elders: genesisElders(authority.EmptyPrefix())}))

	err := s.Apply(chainstate.SectionInfo{Elders: genesisElders(authority.EmptyPrefix())})
	assert.ErrorIs(t, err, chainstate.ErrNoPendingKey)
}

func TestMembershipLifecycle(t *testing.T) {
	s := chainstate.New()
	full, err := crypto.NewFullId()
	require.NoError(t, err)
	name := full.Name()

	require.NoError(t, s.Apply(chainstate.MemberJoined{Name: name, Age: chainstate.MinAge}))
	assert.Equal(t, 1, s.MemberCount())

	require.NoError(t, s.Apply(chainstate.Online{Name: name}))
	m, ok := s.Member(name)
	require.True(t, ok)
	assert.Equal(t, chainstate.StateJoined, m.State)

	require.NoError(t, s.Apply(chainstate.MemberLeft{Name: name}))
	assert.Equal(t, 0, s.MemberCount())

	err = s.Apply(chainstate.Online{Name: name})
	assert.ErrorIs(t, err, chainstate.ErrUnknownMember)
}

func TestTheirKnowledgeOnlyMovesForward(t *testing.T) {
	s := chainstate.New()
	prefix := authority.EmptyPrefix()

	require.NoError(t, s.Apply(chainstate.TheirKnowledge{Prefix: prefix, Knowledge: 3}))
	k, ok := s.TheirKnowledge(prefix)
	require.True(t, ok)
	assert.Equal(t, 3, k)

	require.NoError(t, s.Apply(chainstate.TheirKnowledge{Prefix: prefix, Knowledge: 1}))
	k, _ = s.TheirKnowledge(prefix)
	assert.Equal(t, 3, k, "a lower knowledge index must not regress the recorded value")

	require.NoError(t, s.Apply(chainstate.TheirKnowledge{Prefix: prefix, Knowledge: 5}))
	k, _ = s.TheirKnowledge(prefix)
	assert.Equal(t, 5, k)
}
