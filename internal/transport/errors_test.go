package transport

import (
	"errors"
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
)

func TestTransportError(t *testing.T) {
	t.Run("BasicError", func(t *testing.T) {
		underlying := errors.New("connection failed")
		err := NewTransportError("connect", underlying)

		assert.Equal(t, "connect", err.Op)
		assert.Equal(t, underlying, err.Err)
		assert.Nil(t, err.PeerID)
		assert.Empty(t, err.Topic)
		assert.Equal(t, "transport connect: connection failed", err.Error())
	})

	t.Run("WithPeer", func(t *testing.T) {
		peerID, _ := peer.Decode("12D3KooWGBfKT1krEZCRCRFfqKmYJPEzKNYvSFv7X7R2oVVGAr3P")
		underlying := errors.New("peer unreachable")
		err := NewTransportError("connect", underlying).WithPeer(peerID)

		expected := "transport connect: peer unreachable (peer: 12D3KooWGBfKT1krEZCRCRFfqKmYJPEzKNYvSFv7X7R2oVVGAr3P)"
		assert.Equal(t, expected, err.Error())
		assert.Equal(t, peerID, *err.PeerID)
	})

	t.Run("WithTopic", func(t *testing.T) {
		underlying := errors.New("invalid envelope")
		err := NewTransportError("publish", underlying).WithTopic("section/01")

		expected := "transport publish: invalid envelope (topic: section/01)"
		assert.Equal(t, expected, err.Error())
		assert.Equal(t, "section/01", err.Topic)
	})

	t.Run("WithContext", func(t *testing.T) {
		underlying := errors.New("timeout")
		err := NewTransportError("fetch", underlying).
			WithContext("cid", "QmHash123").
			WithContext("size", 1024)

		assert.Equal(t, "QmHash123", err.Context["cid"])
		assert.Equal(t, 1024, err.Context["size"])
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("original error")
		err := NewTransportError("test", underlying)

		assert.Equal(t, underlying, err.Unwrap())
		assert.True(t, errors.Is(err, underlying))
	})
}

func TestErrorClassification(t *testing.T) {
	t.Run("IsRetryable", func(t *testing.T) {
		assert.True(t, IsRetryable(ErrConnectionFailed))
		assert.True(t, IsRetryable(ErrBlobFetchTimeout))
		assert.True(t, IsRetryable(ErrProviderNotFound))
		assert.True(t, IsRetryable(ErrNetworkNotReady))

		assert.False(t, IsRetryable(ErrInvalidTopic))
		assert.False(t, IsRetryable(ErrInvalidMessage))
		assert.False(t, IsRetryable(ErrPeerGreylisted))
		assert.False(t, IsRetryable(ErrNodeAlreadyStarted))

		wrapped := NewTransportError("connect", ErrConnectionFailed)
		assert.True(t, IsRetryable(wrapped))

		assert.False(t, IsRetryable(nil))
	})

	t.Run("IsTemporary", func(t *testing.T) {
		assert.True(t, IsTemporary(ErrRateLimited))
		assert.True(t, IsTemporary(ErrBlobFetchTimeout))
		assert.True(t, IsTemporary(ErrNetworkNotReady))

		assert.False(t, IsTemporary(ErrInvalidTopic))
		assert.False(t, IsTemporary(ErrPeerGreylisted))
		assert.False(t, IsTemporary(ErrNodeNotStarted))

		wrapped := NewTransportError("rate_limit", ErrRateLimited)
		assert.True(t, IsTemporary(wrapped))

		assert.False(t, IsTemporary(nil))
	})
}

func TestStandardErrors(t *testing.T) {
	errorTests := []struct {
		err      error
		expected string
	}{
		{ErrNodeNotStarted, "transport host not started"},
		{ErrNodeAlreadyStarted, "transport host already started"},
		{ErrInvalidTopic, "invalid topic name"},
		{ErrTopicNotSubscribed, "not subscribed to topic"},
		{ErrMessageTooLarge, "envelope too large"},
		{ErrPeerNotFound, "peer not found"},
		{ErrRateLimited, "rate limited"},
		{ErrPeerGreylisted, "peer greylisted"},
		{ErrInvalidMessage, "invalid envelope format"},
		{ErrProviderNotFound, "no providers found for CID"},
		{ErrDHTNotReady, "DHT not ready"},
		{ErrConnectionFailed, "connection to peer failed"},
		{ErrCacheMiss, "cache miss"},
		{ErrInvalidCID, "invalid CID"},
		{ErrSubscriptionClosed, "subscription closed"},
		{ErrBlobFetchTimeout, "blob fetch timeout"},
		{ErrValidationFailed, "envelope validation failed"},
		{ErrNetworkNotReady, "network not ready"},
	}

	for _, test := range errorTests {
		assert.Equal(t, test.expected, test.err.Error())
	}
}

func TestErrorWrappingBehavior(t *testing.T) {
	base := ErrConnectionFailed
	wrapped := NewTransportError("connect_peer", base)
	doubleWrapped := NewTransportError("retry_connect", wrapped)

	assert.True(t, errors.Is(wrapped, base))
	assert.True(t, errors.Is(doubleWrapped, base))
}
