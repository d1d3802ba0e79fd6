package lockrec

import "errors"

var (
	// ErrInvalidArgument indicates missing or inconsistent construction fields.
	ErrInvalidArgument = errors.New("lockrec: invalid argument")

	// ErrSerialize indicates a resource payload that cannot be canonically
	// encoded for hashing.
	ErrSerialize = errors.New("lockrec: resource cannot be canonically encoded")

	// ErrMissingField indicates a mandatory wire field is absent.
	ErrMissingField = errors.New("lockrec: missing field")

	// ErrUnknownField indicates a wire field this schema does not define.
	ErrUnknownField = errors.New("lockrec: unknown field")

	// ErrMalformed indicates a wire document that cannot be decoded at all.
	ErrMalformed = errors.New("lockrec: malformed wire document")
)
