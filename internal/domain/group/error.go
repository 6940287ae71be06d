package group

import "errors"

// Domain errors for the plan review loop
var (
	// ErrModificationCapReached indicates the bounded modify loop is
	// exhausted and a terminal decision must be forced
	ErrModificationCapReached = errors.New("modification attempt cap reached")

	// ErrGroupFinalized indicates a mutation on an already-finalized group
	ErrGroupFinalized = errors.New("feature group already finalized")
)
