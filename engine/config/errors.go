package config

import (
	"strings"
)

// Error reports a scene descriptor that could not be fetched, parsed or validated.
type Error struct {
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

func (e *Error) Unwrap() error {
	return e.Err
}
