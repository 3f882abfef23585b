package gateway

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers distinguish connectivity loss (recoverable
// by cache fallback) from credential rejection (never retried).
var (
	ErrConnectivity      = errors.New("remote store unreachable")
	ErrAuthentication    = errors.New("invalid credentials")
	ErrUnknownCollection = errors.New("unknown collection")
)

// RemoteError wraps a failed remote operation with its context.
type RemoteError struct {
	Op         string
	Collection string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("remote %s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func remoteErr(op, collection string, err error) error {
	return &RemoteError{Op: op, Collection: collection, Err: err}
}
