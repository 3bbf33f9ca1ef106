package bounce

import "errors"

var (
	// ErrBounceLoop is returned when asked to bounce a message that is
	// itself a bounce; bounces are never bounced.
	ErrBounceLoop = errors.New("bounce: refusing to bounce a bounce")

	// ErrNotABounce is returned when a repair function is handed an
	// envelope whose variant is not the bounce kind it expects.
	ErrNotABounce = errors.New("bounce: envelope is not the expected bounce variant")
)
