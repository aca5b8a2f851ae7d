package defs

import "errors"

// dump errors, all fatal
var (
	ErrIncomplete = errors.New("incomplete instruction")
	ErrMalformed  = errors.New("malformed instruction")
	ErrOrdering   = errors.New("timestamp out of order")
	ErrReference  = errors.New("invalid reference")
	ErrSemantic   = errors.New("invalid instruction")
)

// output errors, all fatal
var (
	ErrEncoderInit = errors.New("can't initialize encoder")
	ErrOutput      = errors.New("can't write output")
)

// ErrUnsupported is reported for payloads which are drained and dropped, replay goes on
var ErrUnsupported = errors.New("unsupported payload")

// IsDumpError tells whether err was caused by the content of the dump
func IsDumpError(err error) bool {
	return errors.Is(err, ErrIncomplete) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrOrdering) ||
		errors.Is(err, ErrReference) ||
		errors.Is(err, ErrSemantic)
}
