package node

import "errors"

// ErrNotAnElder is returned by SendUserMessage when this node holds no
// secret key share, i.e. it is not currently an elder of its section.
var ErrNotAnElder = errors.New("node: not an elder, no secret key share to sign with")
