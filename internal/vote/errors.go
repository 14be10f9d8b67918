package vote

import "errors"

var (
	// ErrInvalidArgument is returned when the caller asks for a target index below 1.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCandidateNotFound means the snapshot held fewer eligible items than requested.
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrTargetNotFound means the item vanished between scan and reconcile.
	ErrTargetNotFound = errors.New("target not found")
	// ErrControlNotFound means the item was found but one of its controls was not.
	ErrControlNotFound = errors.New("control not found")
)
