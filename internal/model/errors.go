package model

import "errors"

var (
	// ErrConfiguration marks a question or variable recipe that cannot be generated.
	ErrConfiguration = errors.New("invalid question configuration")
	// ErrResolution marks a quantity whose derivation could not complete.
	ErrResolution = errors.New("quantity could not be resolved")
	// ErrInvalidSubmission marks submitted text that is not a finite number.
	ErrInvalidSubmission = errors.New("submission is not a number")
	ErrUnknownKind       = errors.New("unknown question kind")
	ErrNoActiveQuestion  = errors.New("session has no active question")
)
