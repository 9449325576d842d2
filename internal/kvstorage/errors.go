package kvstorage

import "errors"

var (
	// ErrKeyNotFound is returned when a key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreUnavailable is returned when the backing storage cannot be
	// reached: the file cannot be read or parsed, the database is locked,
	// or the helper process failed or timed out.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidKey is returned when a key is empty or contains a byte that
	// no backing format can represent as a key.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidValue is returned when a value cannot be represented by the
	// backing format, such as a non UTF-8 string in a TOML file.
	ErrInvalidValue = errors.New("invalid value")
)

// Unavailable wraps err so that errors.Is(err, ErrStoreUnavailable) holds
// while keeping the underlying cause in the message.
func Unavailable(op string, err error) error {
	return &unavailableError{op: op, err: err}
}

type unavailableError struct {
	op  string
	err error
}

func (e *unavailableError) Error() string {
	return e.op + ": " + ErrStoreUnavailable.Error() + ": " + e.err.Error()
}

func (e *unavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *unavailableError) Unwrap() error { return e.err }
