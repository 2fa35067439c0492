// workflow/errors.go
package workflow

import "errors"

// Local validation errors are surfaced to the caller without contacting the
// remote store. ErrRemoteFailure wraps network/server errors, which the
// engine treats as opaque.
var (
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrEvidenceRequired      = errors.New("evidence required")
	ErrProgressNotIncreasing = errors.New("progress not increasing")
	ErrDuplicateName         = errors.New("duplicate name")
	ErrMasterDataUnavailable = errors.New("master data unavailable")
	ErrRemoteFailure         = errors.New("remote failure")
)
