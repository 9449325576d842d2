package cmd

import (
	"errors"

	"ftpvault/internal/ftpservice"
	"ftpvault/internal/kvstorage"
	"ftpvault/internal/kvstorage/helperstore"
	"ftpvault/internal/lifecycle"
	"ftpvault/internal/schema"
)

// Process exit statuses. A supervisor tells a clean stop from a failure,
// and one failure from another, without parsing log text.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitStoreUnavailable = 2
	ExitMissingKey       = 3
	ExitListenBind       = 4
	ExitUnexpectedFault  = 5
)

// errConfig marks invalid process options; it shares the exit status of
// a missing required key since both are operator configuration errors.
var errConfig = errors.New("invalid configuration")

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errHelperNotFound):
		return helperstore.ExitNotFound
	case errors.Is(err, errHelperInvalidValue):
		return helperstore.ExitInvalidValue
	case errors.Is(err, ftpservice.ErrListenBind):
		return ExitListenBind
	case errors.Is(err, lifecycle.ErrUnexpectedFault):
		return ExitUnexpectedFault
	case errors.Is(err, kvstorage.ErrStoreUnavailable):
		return ExitStoreUnavailable
	case errors.Is(err, schema.ErrMissingRequiredKey),
		errors.Is(err, schema.ErrInvalidValue),
		errors.Is(err, kvstorage.ErrInvalidValue),
		errors.Is(err, errConfig):
		return ExitMissingKey
	default:
		return ExitFailure
	}
}
