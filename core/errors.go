package core

import (
	"errors"
	"fmt"
)

// ErrChannelClosed is returned when the negotiation channel has been
// closed and can no longer make progress. It is fatal for the session.
var ErrChannelClosed = errors.New("negotiation channel closed")

// UnknownStrategyError reports a decision naming a strategy identifier
// outside the closed strategy set. It is recoverable: the previous
// strategy stays active.
type UnknownStrategyError struct {
	Identifier string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown strategy identifier %q", e.Identifier)
}

// IsUnknownStrategyError checks if an error is an UnknownStrategyError.
func IsUnknownStrategyError(err error) bool {
	var unknownErr *UnknownStrategyError
	return errors.As(err, &unknownErr)
}

// ProtocolError reports a malformed or unexpected message on the
// negotiation channel. The current report cycle is abandoned; the
// session continues.
type ProtocolError struct {
	Message string
	Payload string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s (payload: %q)", e.Message, e.Payload)
}

// IsProtocolError checks if an error is a ProtocolError.
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}
