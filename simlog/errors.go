package simlog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader is returned when the first line has fewer fields than required.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrMissingField is returned when a record ends before an expected field.
	ErrMissingField = errors.New("missing field")
	// ErrNegativeDuration is returned for a request that ends before it starts.
	ErrNegativeDuration = errors.New("request ends before it starts")
)

// ParseError describes why a line of a simulation log could not be parsed.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
