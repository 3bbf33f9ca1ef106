// Package types holds the wire- and API-facing value types shared across
// cmd/node, internal/transport and internal/node — the JSON shapes other
// processes and operators see, as distinct from the internal event and
// message types those packages exchange with each other.
package types

import (
	"time"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/crypto"
)

// NodeStatus describes one node's current membership and connectivity. No
// endpoint returns it; the bridge's /v1/status answers with
// transport.NetworkStatusResponse.
type NodeStatus struct {
	Name           string    `json:"name"`
	Age            uint8     `json:"age"`
	Prefix         string    `json:"prefix"`
	IsElder        bool      `json:"is_elder"`
	ConnectedPeers int       `json:"connected_peers"`
	Timestamp      time.Time `json:"timestamp"`
}

// SectionStatus describes a section's current elder set and active key.
type SectionStatus struct {
	Prefix     string   `json:"prefix"`
	Version    uint64   `json:"version"`
	SectionKey string   `json:"section_key"`
	Elders     []string `json:"elders"`
}

// NewSectionStatus builds a SectionStatus from the concrete domain types,
// keeping crypto.Name/authority.Prefix out of the JSON-facing surface.
func NewSectionStatus(prefix authority.Prefix, version uint64, key crypto.SectionKey, elders []crypto.Name) SectionStatus {
	names := make([]string, len(elders))
	for i, e := range elders {
		names[i] = e.String()
	}
	return SectionStatus{
		Prefix:     prefix.String(),
		Version:    version,
		SectionKey: key.String(),
		Elders:     names,
	}
}

// NetworkStatus reports the transport host's connectivity, independent of
// section membership.
type NetworkStatus struct {
	ConnectedPeers int       `json:"connected_peers"`
	ListenAddrs    []string  `json:"listen_addrs"`
	Topics         []string  `json:"topics"`
	SyncStatus     string    `json:"sync_status" validate:"oneof=synced syncing offline"`
	Timestamp      time.Time `json:"timestamp"`
}

// ServiceHealth is the generic health-check shape used by the /health
// endpoint and by any future readiness probes.
type ServiceHealth struct {
	Service   string            `json:"service" validate:"required"`
	Status    string            `json:"status" validate:"oneof=healthy degraded unhealthy"`
	LastCheck time.Time         `json:"last_check"`
	Metrics   map[string]string `json:"metrics,omitempty"`
	Errors    []string          `json:"errors,omitempty"`
}

