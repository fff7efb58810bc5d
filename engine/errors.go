package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityViolation marks a terminating line whose device differs from
	// the device already identified in the parser context.
	ErrIdentityViolation = errors.New("device identity violation")

	// ErrEmptyDevice is returned when a record is requested without a device id.
	ErrEmptyDevice = errors.New("empty device identifier")

	// ErrNoHistory is returned when no SMART attribute history file exists for a disk.
	ErrNoHistory = errors.New("no smart attribute history")
)

// IdentityError describes where an identity violation happened.
type IdentityError struct {
	File   string
	LineNo int
	Have   string // device already in the context
	Got    string // device named by the terminating line
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("%s:%d: context device %q, terminating line names %q: %v",
		e.File, e.LineNo, e.Have, e.Got, ErrIdentityViolation)
}

func (e *IdentityError) Unwrap() error { return ErrIdentityViolation }
