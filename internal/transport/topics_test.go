package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
)

func TestTopicManager(t *testing.T) {
	tm := NewTopicManager()

	t.Run("ValidTopics", func(t *testing.T) {
		validTopics := []string{
			"section/",
			"section/0",
			"section/01101",
			"node/" + zeroName().String(),
			"blobs/QmHash123",
		}

		for _, topic := range validTopics {
			assert.True(t, tm.IsValidTopic(topic), "topic %s should be valid", topic)
		}
	})

	t.Run("InvalidTopics", func(t *testing.T) {
		invalidTopics := []string{
			"",
			"invalid",
			"section/2",
			"node/",
			"node/not-hex",
			"SECTION/01",
			"section 01",
			"events/vouch",
		}

		for _, topic := range invalidTopics {
			assert.False(t, tm.IsValidTopic(topic), "topic %s should be invalid", topic)
		}
	})

	t.Run("GetTopicType", func(t *testing.T) {
		assert.Equal(t, "section", tm.GetTopicType("section/01"))
		assert.Equal(t, "node", tm.GetTopicType("node/"+zeroName().String()))
		assert.Equal(t, "blob", tm.GetTopicType("blobs/QmHash123"))
		assert.Equal(t, "unknown", tm.GetTopicType("nonsense"))
	})

	t.Run("GetCoreTopics", func(t *testing.T) {
		name := zeroName()
		prefix, err := authority.ParsePrefix("01")
		require.NoError(t, err)

		core := tm.GetCoreTopics(name, prefix)
		assert.ElementsMatch(t, []string{"node/" + name.String(), "section/01"}, core)
	})

	t.Run("ValidateTopicMessage", func(t *testing.T) {
		assert.NoError(t, tm.ValidateTopicMessage("section/01", []byte("x")))
		assert.Error(t, tm.ValidateTopicMessage("section/01", nil))
		assert.Error(t, tm.ValidateTopicMessage("not-a-topic", []byte("x")))
	})
}

func TestTopicPriority(t *testing.T) {
	tm := NewTopicManager()
	assert.Greater(t, tm.GetTopicPriority("section/01"), tm.GetTopicPriority("blobs/QmHash"))
	assert.Greater(t, tm.GetTopicPriority("node/"+zeroName().String()), tm.GetTopicPriority("blobs/QmHash"))
}

func zeroName() crypto.Name {
	full, err := crypto.NewFullId()
	if err != nil {
		panic(err)
	}
	return full.Name()
}
