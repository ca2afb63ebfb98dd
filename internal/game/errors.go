package game

import "errors"

var (
	ErrNotAcceptingJoins = errors.New("room not accepting new players")
	ErrSendBufferFull    = errors.New("send buffer full")
)

// CloseReason is one of the four close-code categories spec.md §6
// defines for the WebSocket transport.
type CloseReason int

const (
	CloseViolatedPolicy CloseReason = iota
	CloseCannotAccept
	CloseGoingAway
	CloseProtocolError
)

func (r CloseReason) String() string {
	switch r {
	case CloseViolatedPolicy:
		return "VIOLATED_POLICY"
	case CloseCannotAccept:
		return "CANNOT_ACCEPT"
	case CloseGoingAway:
		return "GOING_AWAY"
	case CloseProtocolError:
		return "PROTOCOL_ERROR"
	default:
		return "UNKNOWN"
	}
}
