// Package authority implements typed message addressing: source
// attestations (SrcAuthority) and routing destinations (DstLocation), both
// expressed over XOR-name prefixes.
package authority

import (
	"strings"

	"github.com/sectionmesh/node/internal/crypto"
)

// Prefix identifies a section as a bitstring over a node's XOR-name. Two
// prefixes are compatible iff one is a prefix of the other.
type Prefix struct {
	bitCount int
	bytes    crypto.Name
}

// EmptyPrefix matches every name; it is the root section before any split.
func EmptyPrefix() Prefix {
	return Prefix{}
}

// ParsePrefix parses a prefix from its "0101..." bitstring form.
func ParsePrefix(s string) (Prefix, error) {
	if len(s) > crypto.NameSize*8 {
		return Prefix{}, ErrPrefixTooLong
	}
	var p Prefix
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			p = p.PushBit(false)
		case '1':
			p = p.PushBit(true)
		default:
			return Prefix{}, ErrInvalidPrefix
		}
	}
	return p, nil
}

func (p Prefix) BitCount() int { return p.bitCount }

func bitAt(b []byte, i int) bool {
	return b[i/8]&(0x80>>uint(i%8)) != 0
}

// Matches reports whether name falls under this prefix.
func (p Prefix) Matches(name crypto.Name) bool {
	for i := 0; i < p.bitCount; i++ {
		if bitAt(p.bytes[:], i) != bitAt(name[:], i) {
			return false
		}
	}
	return true
}

// IsCompatible reports whether one prefix is a prefix of the other.
func (p Prefix) IsCompatible(o Prefix) bool {
	n := p.bitCount
	if o.bitCount < n {
		n = o.bitCount
	}
	for i := 0; i < n; i++ {
		if bitAt(p.bytes[:], i) != bitAt(o.bytes[:], i) {
			return false
		}
	}
	return true
}

// PushBit returns the child prefix produced by appending bit to p, as when
// a section splits into two halves.
func (p Prefix) PushBit(bit bool) Prefix {
	child := p
	if bit {
		child.bytes[p.bitCount/8] |= 0x80 >> uint(p.bitCount%8)
	}
	child.bitCount = p.bitCount + 1
	return child
}

// IsExtensionOf reports whether p was produced by pushing one or more bits
// onto o (p is a longer, more specific prefix of the same branch).
func (p Prefix) IsExtensionOf(o Prefix) bool {
	return p.bitCount >= o.bitCount && o.IsCompatible(p)
}

func (p Prefix) Equal(o Prefix) bool {
	return p.bitCount == o.bitCount && p.bytes == o.bytes
}

func (p Prefix) String() string {
	var sb strings.Builder
	for i := 0; i < p.bitCount; i++ {
		if bitAt(p.bytes[:], i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler so a Prefix can appear as a
// canonical JSON string or a map key.
func (p Prefix) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Prefix) UnmarshalText(text []byte) error {
	parsed, err := ParsePrefix(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
