package transport

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
)

// Topic name patterns.
//
// Envelopes destined for a section are gossiped on "section/<prefix bits>",
// where prefix bits is the authority.Prefix bitstring (e.g. "section/01").
// The root section, before any split, publishes on "section/" with an empty
// bitstring. Envelopes destined for a single node are gossiped on
// "node/<hex name>". Blob content referenced from a UserMessage payload is
// gossiped on "blobs/<cid>"; the host caches it by CID instead of passing
// it to the node event loop.
const (
	TopicSectionPrefix = "section/"
	TopicNodePrefix    = "node/"
	TopicBlobPrefix    = "blobs/"
)

var (
	sectionTopicRegex = regexp.MustCompile(`^section/[01]*$`)
	nodeTopicRegex     = regexp.MustCompile(`^node/[0-9a-f]{64}$`)
	blobTopicRegex     = regexp.MustCompile(`^blobs/[a-zA-Z0-9]+$`)
)

// SectionTopic returns the gossip topic for envelopes addressed to the
// section at prefix.
func SectionTopic(prefix authority.Prefix) string {
	return TopicSectionPrefix + prefix.String()
}

// NodeTopic returns the gossip topic for envelopes addressed to a single
// node by XOR-name.
func NodeTopic(name crypto.Name) string {
	return TopicNodePrefix + name.String()
}

// BlobTopic returns the fetch topic for the blob identified by cidStr.
func BlobTopic(cidStr string) string {
	return TopicBlobPrefix + cidStr
}

// TopicManager manages topic subscriptions and validation
type TopicManager struct {
	validTopics map[string]bool
}

// NewTopicManager creates a new topic manager
func NewTopicManager() *TopicManager {
	return &TopicManager{
		validTopics: make(map[string]bool),
	}
}

// IsValidTopic checks if a topic name is valid
func (tm *TopicManager) IsValidTopic(topic string) bool {
	if topic == "" {
		return false
	}

	switch {
	case sectionTopicRegex.MatchString(topic):
		return true
	case nodeTopicRegex.MatchString(topic):
		return true
	case blobTopicRegex.MatchString(topic):
		return true
	default:
		return false
	}
}

// GetTopicType returns the category of a topic
func (tm *TopicManager) GetTopicType(topic string) string {
	switch {
	case strings.HasPrefix(topic, TopicSectionPrefix):
		return "section"
	case strings.HasPrefix(topic, TopicNodePrefix):
		return "node"
	case strings.HasPrefix(topic, TopicBlobPrefix):
		return "blob"
	default:
		return "unknown"
	}
}

// GetCoreTopics returns the topics every node subscribes to regardless of
// its current section membership: its own node topic and the root section
// topic, which narrows to its actual section prefix once it joins.
func (tm *TopicManager) GetCoreTopics(self crypto.Name, prefix authority.Prefix) []string {
	return []string{
		NodeTopic(self),
		SectionTopic(prefix),
	}
}

// ValidateTopicMessage performs basic validation on a topic message
func (tm *TopicManager) ValidateTopicMessage(topic string, data []byte) error {
	if !tm.IsValidTopic(topic) {
		return fmt.Errorf("invalid topic: %s", topic)
	}

	if len(data) == 0 {
		return fmt.Errorf("empty message data")
	}

	topicType := tm.GetTopicType(topic)
	maxSize := tm.getMaxMessageSize(topicType)

	if len(data) > maxSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(data), maxSize)
	}

	return nil
}

// getMaxMessageSize returns the maximum message size for a topic type
func (tm *TopicManager) getMaxMessageSize(topicType string) int {
	switch topicType {
	case "section", "node":
		return 16 * 1024 // matches message.ErrEnvelopeTooLarge's bound
	case "blob":
		return 1024 * 1024 // 1MB, though large blobs should be chunked
	default:
		return 16 * 1024
	}
}

// GetTopicPriority returns the priority level for a topic (higher = more important)
func (tm *TopicManager) GetTopicPriority(topic string) int {
	switch {
	case strings.HasPrefix(topic, TopicSectionPrefix):
		return 10 // consensus-bearing envelopes
	case strings.HasPrefix(topic, TopicNodePrefix):
		return 8 // direct envelopes, including bounces
	case strings.HasPrefix(topic, TopicBlobPrefix):
		return 1 // lowest priority - content
	default:
		return 3
	}
}
