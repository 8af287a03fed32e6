package core

import "errors"

var (
	// ErrNetworkUnreachable means the remote could not be reached at all.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrProxy is a relay-local failure (bad target, unreadable response).
	ErrProxy = errors.New("proxy error")
	// ErrRemoteRejected is an explicit JSON-RPC error from the server.
	ErrRemoteRejected = errors.New("remote rejected request")
	// ErrMissingSessionToken is an accepted login that handed back no session.
	ErrMissingSessionToken = errors.New("missing session token")
	// ErrLogicalPushFailure is an HTTP success without an acknowledgment.
	ErrLogicalPushFailure = errors.New("push not acknowledged")
	// ErrConcurrentPush is returned while another push cycle is in flight.
	ErrConcurrentPush = errors.New("push already in progress")

	// ErrInvalidTarget is a relay target that is not an http(s) URL.
	ErrInvalidTarget = errors.New("invalid relay target")

	ErrNoSession         = errors.New("no active session")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrEvictedOnArrival is a punch older than every record of a full queue
	// of pending punches; it is not stored.
	ErrEvictedOnArrival = errors.New("queue full, punch evicted on arrival")
)

// Retryable reports whether a push may be attempted again after err.
// Authentication failures are never retried automatically.
func Retryable(err error) bool {
	if errors.Is(err, ErrInvalidTarget) {
		return false
	}
	return errors.Is(err, ErrNetworkUnreachable) ||
		errors.Is(err, ErrLogicalPushFailure) ||
		errors.Is(err, ErrProxy)
}
