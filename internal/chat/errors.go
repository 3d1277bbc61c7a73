package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrTurnInFlight rejects a message sent while another turn is running.
	ErrTurnInFlight = errors.New("chat: a turn is already in flight")
	// ErrConversationCleared ends a turn whose conversation was cleared
	// before it finished. The cleared log is left untouched.
	ErrConversationCleared = errors.New("chat: conversation cleared during turn")

	errEmptyBody   = errors.New("empty response body")
	errEmptyAnswer = errors.New("response has nothing to show")
)

// ErrorKind classifies why a turn failed.
type ErrorKind string

const (
	// ErrorKindTransport covers requests that never produced a response.
	ErrorKindTransport ErrorKind = "transport"
	// ErrorKindProtocol covers non-2xx responses.
	ErrorKindProtocol ErrorKind = "protocol"
	// ErrorKindBody covers responses whose body could not be read.
	ErrorKindBody ErrorKind = "body"
)

// TurnError is returned by SendMessage when a turn fails. Message is the
// user-visible text also published in the controller state.
type TurnError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chat %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("chat %s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("chat %s error: %s", e.Kind, e.Message)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}
