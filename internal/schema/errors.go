package schema

import "errors"

var (
	// ErrMissingRequiredKey is returned when a key needed for startup is
	// absent or empty.
	ErrMissingRequiredKey = errors.New("missing required key")

	// ErrInvalidValue is returned when a stored or proposed value does not
	// match the type of its key.
	ErrInvalidValue = errors.New("invalid value")

	// ErrWrongNamespace is returned when a key is accessed through the
	// accessor of another namespace, e.g. reading a secret as a setting.
	ErrWrongNamespace = errors.New("key belongs to another namespace")
)
