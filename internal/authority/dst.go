package authority

import (
	"encoding/json"

	"github.com/sectionmesh/node/internal/crypto"
)

type dstKind int

const (
	dstNode dstKind = iota
	dstSection
	dstDirect
)

// DstLocation is the tagged union of message destinations: a specific
// node, a section addressed by any name under its prefix, or a direct
// peer-to-peer destination that is never routed.
type DstLocation struct {
	kind dstKind
	name crypto.Name
}

// NodeDst addresses a specific node by its XOR-name.
func NodeDst(name crypto.Name) DstLocation {
	return DstLocation{kind: dstNode, name: name}
}

// SectionDst addresses the section whose prefix matches name.
func SectionDst(name crypto.Name) DstLocation {
	return DstLocation{kind: dstSection, name: name}
}

// DirectDst addresses the immediate peer, outside routing.
func DirectDst() DstLocation {
	return DstLocation{kind: dstDirect}
}

func (d DstLocation) IsNode() bool    { return d.kind == dstNode }
func (d DstLocation) IsSection() bool { return d.kind == dstSection }
func (d DstLocation) IsDirect() bool  { return d.kind == dstDirect }

// Name returns the addressed name, for Node and Section destinations.
func (d DstLocation) Name() (crypto.Name, bool) {
	if d.kind == dstDirect {
		return crypto.Name{}, false
	}
	return d.name, true
}

// Matches reports whether this destination addresses name: for Node(n),
// iff n == name; for Section(n), iff ourPrefix contains n; never for
// Direct.
func (d DstLocation) Matches(name crypto.Name, ourPrefix Prefix) bool {
	switch d.kind {
	case dstNode:
		return d.name == name
	case dstSection:
		return ourPrefix.Matches(d.name)
	default:
		return false
	}
}

// Equal compares two destinations field-wise.
func (d DstLocation) Equal(o DstLocation) bool {
	if d.kind != o.kind {
		return false
	}
	if d.kind == dstDirect {
		return true
	}
	return d.name == o.name
}

type dstWire struct {
	Kind string      `json:"kind"`
	Name crypto.Name `json:"name,omitzero"`
}

// MarshalJSON implements canonical wire encoding for DstLocation.
func (d DstLocation) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case dstNode:
		return json.Marshal(dstWire{Kind: "node", Name: d.name})
	case dstSection:
		return json.Marshal(dstWire{Kind: "section", Name: d.name})
	case dstDirect:
		return json.Marshal(dstWire{Kind: "direct"})
	default:
		return nil, ErrInvalidDstLocation
	}
}

// UnmarshalJSON implements canonical wire decoding for DstLocation.
func (d *DstLocation) UnmarshalJSON(data []byte) error {
	var w dstWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case "node":
		*d = DstLocation{kind: dstNode, name: w.Name}
	case "section":
		*d = DstLocation{kind: dstSection, name: w.Name}
	case "direct":
		*d = DstLocation{kind: dstDirect}
	default:
		return ErrInvalidDstLocation
	}
	return nil
}
