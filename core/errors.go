package core

import "github.com/pkg/errors"

// Error taxonomy for block-store and discovery operations. BlockStore.Split
// returns these sentinels unwrapped, so callers that treat a split as
// opportunistic (the discovery and retype engines) compare the result
// with ErrSplitExisting directly rather than aborting.
var (
	// ErrSplitExisting means the requested split address is already a
	// block boundary. Informational: the store did no work.
	ErrSplitExisting = errors.New("split: address is already a block boundary")

	// ErrSplitOutOfBounds means the requested split address does not fall
	// inside any known segment.
	ErrSplitOutOfBounds = errors.New("split: address outside any segment")

	// ErrSplitMidInstruction means the requested split address falls
	// strictly inside a decoded instruction and claimMidInstruction was
	// not set.
	ErrSplitMidInstruction = errors.New("split: address lies inside a decoded instruction")

	// ErrUnknownAddress means an operation referenced an address outside
	// any segment's range.
	ErrUnknownAddress = errors.New("address is not within any known segment")

	// ErrDecodeFailure means the decoder produced no match and
	// DisassembleAsData also gave up (returned 0).
	ErrDecodeFailure = errors.New("decoder could not make forward progress")
)
