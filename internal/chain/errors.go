package chain

import "errors"

var (
	// ErrInvalidChain indicates a pushed key's signature does not verify
	// under the chain's current last key.
	ErrInvalidChain = errors.New("invalid chain: signature does not verify under last key")

	// ErrKeyNotFound indicates a key required by extend/slice is absent
	// from the chain being searched.
	ErrKeyNotFound = errors.New("key not found in chain")

	// ErrIncompatible indicates the donor chain's position of new_first
	// comes after the position of self's first key, so the two chains
	// cannot be stitched together.
	ErrIncompatible = errors.New("chains are not compatible for extension")

	// ErrEmptyChain indicates an operation requires a non-empty chain.
	ErrEmptyChain = errors.New("section proof chain must be non-empty")
)
