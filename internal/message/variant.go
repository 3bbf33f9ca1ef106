package message

import (
	"bytes"
	"encoding/json"

	"github.com/sectionmesh/node/internal/crypto"
)

// VariantTag identifies which payload a Variant carries.
type VariantTag string

const (
	TagUserMessage                   VariantTag = "UserMessage"
	TagBootstrapRequest              VariantTag = "BootstrapRequest"
	TagBootstrapResponseJoin         VariantTag = "BootstrapResponseJoin"
	TagBootstrapResponseRebootstrap  VariantTag = "BootstrapResponseRebootstrap"
	TagJoinRequest                   VariantTag = "JoinRequest"
	TagNodeApproval                  VariantTag = "NodeApproval"
	TagParsecRequest                 VariantTag = "ParsecRequest"
	TagParsecResponse                VariantTag = "ParsecResponse"
	TagBouncedUnknownMessage         VariantTag = "BouncedUnknownMessage"
	TagBouncedUntrustedMessage       VariantTag = "BouncedUntrustedMessage"
	TagGenesisUpdate                 VariantTag = "GenesisUpdate"
)

// Variant is the closed tagged union of message payloads (spec §6). It is
// a value type; construct one with the matching constructor function and
// read it back with the matching accessor.
type Variant struct {
	tag VariantTag

	userMessage      []byte
	bootstrapRequest crypto.Name

	join        *EldersInfo
	rebootstrap []string

	joinRequestProofs []byte

	nodeApproval *ProvenEldersInfo

	parsecVersion uint64
	parsecGossip  []byte

	bouncedMessage       []byte
	bouncedParsecVersion uint64

	bouncedOriginal []byte
	bouncedDstKey   crypto.SectionKey

	genesisUpdate *ProvenEldersInfo
}

func NewUserMessage(content []byte) Variant {
	return Variant{tag: TagUserMessage, userMessage: content}
}

func NewBootstrapRequest(peer crypto.Name) Variant {
	return Variant{tag: TagBootstrapRequest, bootstrapRequest: peer}
}

func NewBootstrapResponseJoin(info EldersInfo) Variant {
	return Variant{tag: TagBootstrapResponseJoin, join: &info}
}

func NewBootstrapResponseRebootstrap(addrs []string) Variant {
	return Variant{tag: TagBootstrapResponseRebootstrap, rebootstrap: addrs}
}

func NewJoinRequest(proofs []byte) Variant {
	return Variant{tag: TagJoinRequest, joinRequestProofs: proofs}
}

func NewNodeApproval(info ProvenEldersInfo) Variant {
	return Variant{tag: TagNodeApproval, nodeApproval: &info}
}

func NewParsecRequest(version uint64, gossip []byte) Variant {
	return Variant{tag: TagParsecRequest, parsecVersion: version, parsecGossip: gossip}
}

func NewParsecResponse(version uint64, gossip []byte) Variant {
	return Variant{tag: TagParsecResponse, parsecVersion: version, parsecGossip: gossip}
}

func NewBouncedUnknownMessage(original []byte, parsecVersion uint64) Variant {
	return Variant{tag: TagBouncedUnknownMessage, bouncedMessage: original, bouncedParsecVersion: parsecVersion}
}

func NewBouncedUntrustedMessage(original []byte, dstKey crypto.SectionKey) Variant {
	return Variant{tag: TagBouncedUntrustedMessage, bouncedOriginal: original, bouncedDstKey: dstKey}
}

func NewGenesisUpdate(info ProvenEldersInfo) Variant {
	return Variant{tag: TagGenesisUpdate, genesisUpdate: &info}
}

func (v Variant) Tag() VariantTag { return v.tag }

// Equal reports whether two variants carry the same tag and payload.
func (v Variant) Equal(o Variant) bool {
	a, err := json.Marshal(v)
	if err != nil {
		return false
	}
	b, err := json.Marshal(o)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// RequiresProofChain reports whether an envelope carrying this variant must
// attach a proof chain. Supplemented from original_source's implicit
// construction-path distinction, made explicit here: SingleSrc rejects such
// a variant when no proof chain is given (SectionSrc always requires one).
func (v Variant) RequiresProofChain() bool {
	switch v.tag {
	case TagNodeApproval, TagGenesisUpdate, TagBootstrapResponseJoin:
		return true
	default:
		return false
	}
}

func (v Variant) UserMessage() ([]byte, bool) {
	if v.tag != TagUserMessage {
		return nil, false
	}
	return v.userMessage, true
}

func (v Variant) BootstrapRequestPeer() (crypto.Name, bool) {
	if v.tag != TagBootstrapRequest {
		return crypto.Name{}, false
	}
	return v.bootstrapRequest, true
}

func (v Variant) BootstrapResponseJoin() (EldersInfo, bool) {
	if v.tag != TagBootstrapResponseJoin || v.join == nil {
		return EldersInfo{}, false
	}
	return *v.join, true
}

func (v Variant) BootstrapResponseRebootstrap() ([]string, bool) {
	if v.tag != TagBootstrapResponseRebootstrap {
		return nil, false
	}
	return v.rebootstrap, true
}

func (v Variant) JoinRequestProofs() ([]byte, bool) {
	if v.tag != TagJoinRequest {
		return nil, false
	}
	return v.joinRequestProofs, true
}

func (v Variant) NodeApproval() (ProvenEldersInfo, bool) {
	if v.tag != TagNodeApproval || v.nodeApproval == nil {
		return ProvenEldersInfo{}, false
	}
	return *v.nodeApproval, true
}

func (v Variant) ParsecRequest() (version uint64, gossip []byte, ok bool) {
	if v.tag != TagParsecRequest {
		return 0, nil, false
	}
	return v.parsecVersion, v.parsecGossip, true
}

func (v Variant) ParsecResponse() (version uint64, gossip []byte, ok bool) {
	if v.tag != TagParsecResponse {
		return 0, nil, false
	}
	return v.parsecVersion, v.parsecGossip, true
}

func (v Variant) BouncedUnknownMessage() (original []byte, parsecVersion uint64, ok bool) {
	if v.tag != TagBouncedUnknownMessage {
		return nil, 0, false
	}
	return v.bouncedMessage, v.bouncedParsecVersion, true
}

func (v Variant) BouncedUntrustedMessage() (original []byte, dstKey crypto.SectionKey, ok bool) {
	if v.tag != TagBouncedUntrustedMessage {
		return nil, crypto.SectionKey{}, false
	}
	return v.bouncedOriginal, v.bouncedDstKey, true
}

func (v Variant) GenesisUpdate() (ProvenEldersInfo, bool) {
	if v.tag != TagGenesisUpdate || v.genesisUpdate == nil {
		return ProvenEldersInfo{}, false
	}
	return *v.genesisUpdate, true
}

type variantWire struct {
	Kind VariantTag `json:"kind"`

	UserMessage []byte `json:"user_message,omitempty"`

	BootstrapRequest crypto.Name `json:"bootstrap_request,omitzero"`

	Join        *EldersInfo `json:"join,omitempty"`
	Rebootstrap []string    `json:"rebootstrap,omitempty"`

	JoinRequestProofs []byte `json:"join_request_proofs,omitempty"`

	NodeApproval *ProvenEldersInfo `json:"node_approval,omitempty"`

	ParsecVersion uint64 `json:"parsec_version,omitempty"`
	ParsecGossip  []byte `json:"parsec_gossip,omitempty"`

	BouncedMessage       []byte `json:"bounced_message,omitempty"`
	BouncedParsecVersion uint64 `json:"bounced_parsec_version,omitempty"`

	BouncedOriginal []byte            `json:"bounced_original,omitempty"`
	BouncedDstKey   crypto.SectionKey `json:"bounced_dst_key,omitzero"`

	GenesisUpdate *ProvenEldersInfo `json:"genesis_update,omitempty"`
}

// MarshalJSON implements canonical wire encoding for Variant.
func (v Variant) MarshalJSON() ([]byte, error) {
	w := variantWire{Kind: v.tag}
	switch v.tag {
	case TagUserMessage:
		w.UserMessage = v.userMessage
	case TagBootstrapRequest:
		w.BootstrapRequest = v.bootstrapRequest
	case TagBootstrapResponseJoin:
		w.Join = v.join
	case TagBootstrapResponseRebootstrap:
		w.Rebootstrap = v.rebootstrap
	case TagJoinRequest:
		w.JoinRequestProofs = v.joinRequestProofs
	case TagNodeApproval:
		w.NodeApproval = v.nodeApproval
	case TagParsecRequest, TagParsecResponse:
		w.ParsecVersion = v.parsecVersion
		w.ParsecGossip = v.parsecGossip
	case TagBouncedUnknownMessage:
		w.BouncedMessage = v.bouncedMessage
		w.BouncedParsecVersion = v.bouncedParsecVersion
	case TagBouncedUntrustedMessage:
		w.BouncedOriginal = v.bouncedOriginal
		w.BouncedDstKey = v.bouncedDstKey
	case TagGenesisUpdate:
		w.GenesisUpdate = v.genesisUpdate
	default:
		return nil, ErrInvalidMessageStructure
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements canonical wire decoding for Variant.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var w variantWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case TagUserMessage:
		*v = NewUserMessage(w.UserMessage)
	case TagBootstrapRequest:
		*v = NewBootstrapRequest(w.BootstrapRequest)
	case TagBootstrapResponseJoin:
		if w.Join == nil {
			return ErrInvalidMessageStructure
		}
		*v = NewBootstrapResponseJoin(*w.Join)
	case TagBootstrapResponseRebootstrap:
		*v = NewBootstrapResponseRebootstrap(w.Rebootstrap)
	case TagJoinRequest:
		*v = NewJoinRequest(w.JoinRequestProofs)
	case TagNodeApproval:
		if w.NodeApproval == nil {
			return ErrInvalidMessageStructure
		}
		*v = NewNodeApproval(*w.NodeApproval)
	case TagParsecRequest:
		*v = NewParsecRequest(w.ParsecVersion, w.ParsecGossip)
	case TagParsecResponse:
		*v = NewParsecResponse(w.ParsecVersion, w.ParsecGossip)
	case TagBouncedUnknownMessage:
		*v = NewBouncedUnknownMessage(w.BouncedMessage, w.BouncedParsecVersion)
	case TagBouncedUntrustedMessage:
		*v = NewBouncedUntrustedMessage(w.BouncedOriginal, w.BouncedDstKey)
	case TagGenesisUpdate:
		if w.GenesisUpdate == nil {
			return ErrInvalidMessageStructure
		}
		*v = NewGenesisUpdate(*w.GenesisUpdate)
	default:
		return ErrInvalidMessageStructure
	}
	return nil
}
