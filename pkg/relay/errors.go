package relay

import "errors"

var (
	// ErrMaxSessionsReached is returned when the session limit is hit.
	ErrMaxSessionsReached = errors.New("relay: maximum sessions reached")

	// ErrSessionClosed is returned when sending to a closed session.
	ErrSessionClosed = errors.New("relay: session closed")
)
