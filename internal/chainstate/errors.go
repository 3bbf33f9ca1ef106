package chainstate

import "errors"

var (
	ErrAlreadyInitialised = errors.New("chainstate: already initialised")
	ErrNotInitialised     = errors.New("chainstate: not yet initialised")
	ErrNoPendingKey       = errors.New("chainstate: no pending OurKey for this SectionInfo")
	ErrPrefixMismatch     = errors.New("chainstate: SectionInfo prefix does not match pending OurKey")
	ErrUnknownMember      = errors.New("chainstate: unknown member")
	ErrUnknownEvent       = errors.New("chainstate: unrecognised event type")

	// ErrFatal marks a failed invariant (e.g. our chain's last key
	// diverging from the active public key set). The node surfaces this
	// as Terminated rather than attempting to recover locally.
	ErrFatal = errors.New("chainstate: fatal invariant violation")
)
