package message

import (
	"crypto/ed25519"

	"github.com/sectionmesh/node/internal/authority"
	"github.com/sectionmesh/node/internal/chain"
	"github.com/sectionmesh/node/internal/crypto"
)

// ElderInfo identifies one voting member of a section.
type ElderInfo struct {
	Name      crypto.Name       `json:"name"`
	PublicKey ed25519.PublicKey `json:"public_key"`
	Age       uint8             `json:"age"`
}

// EldersInfo describes a section's current elder membership, carried by
// BootstrapResponse::Join, NodeApproval, and GenesisUpdate.
type EldersInfo struct {
	Prefix  authority.Prefix `json:"prefix"`
	Elders  []ElderInfo      `json:"elders"`
	Version uint64           `json:"version"`
}

// ProvenEldersInfo attaches a proof chain and a BLS signature so a
// recipient can verify an EldersInfo without trusting the sender outright.
type ProvenEldersInfo struct {
	Info       EldersInfo                `json:"info"`
	ProofChain *chain.SectionProofChain  `json:"proof_chain"`
	Signature  []byte                    `json:"signature"`
}
