package accumulator

import "errors"

var (
	// ErrInvalidShare is returned when a partial signature fails to verify
	// against the claimed index's public key share. Callers should count
	// and discard; it is not escalated to the caller's caller.
	ErrInvalidShare = errors.New("accumulator: invalid partial signature")

	// ErrIndexOutOfRange is returned when a share's claimed elder index
	// falls outside [0, N) for the key set's size N.
	ErrIndexOutOfRange = errors.New("accumulator: share index out of range")

	// ErrAccumulatorMismatch is returned when a share arrives for an
	// existing accumulation key but under an incompatible, non-extending
	// public key set.
	ErrAccumulatorMismatch = errors.New("accumulator: key set mismatch")

	// ErrNotElder is returned when a share's public key set is neither the
	// caller's currently recognised elder set for the section nor a set
	// the accompanying proof chain proves supersedes it.
	ErrNotElder = errors.New("accumulator: share not from a recognised elder set")

	// ErrNotAShare is returned by UnmarshalShare when data does not carry
	// the share wire tag.
	ErrNotAShare = errors.New("accumulator: data is not a share message")
)
