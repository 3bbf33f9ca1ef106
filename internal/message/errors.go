package message

import "errors"

// Error taxonomy per spec §7 (kinds, not types). Per-message errors are
// always recovered locally: drop, optionally bounce, optionally count.
var (
	// ErrSerialisation: cannot decode a frame. Dropped; counted.
	ErrSerialisation = errors.New("cannot decode message frame")

	// ErrFailedSignature: the outer signature does not verify.
	ErrFailedSignature = errors.New("failed signature")

	// ErrUntrustedMessage: proof chain verifies internally but contains
	// an Invalid link.
	ErrUntrustedMessage = errors.New("untrusted message")

	// ErrInvalidMessage: a required field is missing, e.g. Section-src
	// without a proof chain.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidMessageStructure covers malformed envelope/variant wire
	// shapes caught before the signature check runs.
	ErrInvalidMessageStructure = errors.New("invalid message structure")

	// ErrEnvelopeTooLarge indicates a serialised envelope exceeds
	// MaxEnvelopeSize.
	ErrEnvelopeTooLarge = errors.New("envelope too large")

	// ErrCanonicalizationFailed indicates bytes claimed to be canonical
	// JSON do not round-trip identically.
	ErrCanonicalizationFailed = errors.New("canonicalization failed")
)
