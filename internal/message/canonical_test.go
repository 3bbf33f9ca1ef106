package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/message"
)

func TestCanonicalizeJSONSortsKeysAndDropsEmpty(t *testing.T) {
	type inner struct {
		Z string `json:"z"`
		A string `json:"a"`
	}
	type outer struct {
		Inner inner  `json:"inner"`
		Empty string `json:"empty"`
	}

	data, err := message.CanonicalizeJSON(outer{Inner: inner{Z: "zed", A: "ay"}})
	require.NoError(t, err)

	assert.Equal(t, `{"inner":{"a":"ay","z":"zed"}}`, string(data))
}

func TestCanonicalizeJSONDeterministic(t *testing.T) {
	type payload struct {
		B string `json:"b"`
		A string `json:"a"`
	}

	first, err := message.CanonicalizeJSON(payload{B: "two", A: "one"})
	require.NoError(t, err)
	second, err := message.CanonicalizeJSON(payload{B: "two", A: "one"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValidateCanonicalJSONRejectsNonCanonical(t *testing.T) {
	nonCanonical := []byte(`{"z":"1","a":"2"}`)
	assert.Error(t, message.ValidateCanonicalJSON(nonCanonical))

	canonical, err := message.CanonicalizeJSON(map[string]string{"a": "2", "z": "1"})
	require.NoError(t, err)
	assert.NoError(t, message.ValidateCanonicalJSON(canonical))
}
