package upstream

import "fmt"

// NetworkError wraps a transport-level failure. Retryable by user action;
// local state is untouched.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("upstream %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteRejection is an API response with success=false, carrying the
// server-provided message. Treated like a network error for control flow.
type RemoteRejection struct {
	Op      string
	Message string
}

func (e *RemoteRejection) Error() string {
	return fmt.Sprintf("upstream %s: rejected: %s", e.Op, e.Message)
}

// ParseError is a malformed or non-JSON response. The raw body is kept
// (truncated) for diagnostics. Fatal to the attempt only.
type ParseError struct {
	Op   string
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("upstream %s: bad response: %v (body: %s)", e.Op, e.Err, e.Body)
}

func (e *ParseError) Unwrap() error { return e.Err }
