package roon

import "github.com/cockroachdb/errors"

var (
	// ErrNotConnected is returned when no core connection is established.
	ErrNotConnected = errors.New("not connected to core")
	// ErrClosed is returned when the session a request belongs to has ended.
	ErrClosed = errors.New("session closed")
	// ErrInvalidMessage is returned for frames that are not valid MOO/1 messages.
	ErrInvalidMessage = errors.New("invalid moo message")
	// ErrRequestFailed marks a response whose name is not Success.
	ErrRequestFailed = errors.New("request failed")
)

// responseError converts a non-success response into an error carrying the
// response name.
func responseError(msg *Message) error {
	return errors.Mark(errors.Newf("%s", msg.Name), ErrRequestFailed)
}
