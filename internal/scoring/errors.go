package scoring

import "fmt"

// Kind classifies a batch scoring failure so callers can decide what to
// persist and report.
type Kind string

const (
	// KindTimeout covers any timeout phase: connect, request write, or
	// waiting for the response.
	KindTimeout Kind = "timeout"
	// KindConnectFailed means the agent was unreachable.
	KindConnectFailed Kind = "connect_failed"
	// KindBadResponse means the agent answered but the payload was
	// unusable: non-200 status, malformed JSON, or a schema violation.
	KindBadResponse Kind = "bad_response"
	// KindTransport covers remaining network failures.
	KindTransport Kind = "transport_error"
)

// Error describes a failed batch scoring call.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
