package authority

import "errors"

var (
	// ErrInvalidSrcAuthority indicates a SrcAuthority with neither a node
	// nor a section attestation set.
	ErrInvalidSrcAuthority = errors.New("invalid source authority")

	// ErrInvalidPrefix indicates a malformed bitstring prefix.
	ErrInvalidPrefix = errors.New("invalid prefix")

	// ErrPrefixTooLong indicates a prefix longer than a name.
	ErrPrefixTooLong = errors.New("prefix longer than a name")

	// ErrInvalidDstLocation indicates a DstLocation with an unrecognised
	// wire tag.
	ErrInvalidDstLocation = errors.New("invalid destination location")
)
