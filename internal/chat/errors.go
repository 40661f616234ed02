package chat

import (
	"errors"
	"fmt"
)

// ErrBlocked marks a failure caused by the recipient blocking the bot or
// deactivating their account.
var ErrBlocked = errors.New("recipient blocked delivery")

// TransportError wraps a failed call to the platform.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsBlocked reports whether err means the recipient blocked delivery.
func IsBlocked(err error) bool {
	return errors.Is(err, ErrBlocked)
}
