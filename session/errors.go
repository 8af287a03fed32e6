package session

import "fmt"

type AuthErrorKind string

const (
	// ProxyOrNetwork covers a relay or transport failure.
	ProxyOrNetwork AuthErrorKind = "proxy_or_network"
	// Rejected is an explicit JSON-RPC error, typically bad credentials or db.
	Rejected AuthErrorKind = "rejected"
	// MissingToken is a login without error that returned no usable session.
	MissingToken AuthErrorKind = "missing_token"
	// Storage is a failure persisting the new session.
	Storage AuthErrorKind = "storage"
)

// AuthError is how Authenticate reports every failure. Err carries one of the
// core sentinels so callers can branch with errors.Is.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (%s): %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
