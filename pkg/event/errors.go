package event

import (
	"errors"
	"fmt"
)

var (
	// ErrStackUnderflow is returned by Stack.Pop when only the base scope remains.
	ErrStackUnderflow = errors.New("event: cannot pop the base scope")

	// ErrUnknownEvent is returned by Typed when an identifier is not part of its table.
	ErrUnknownEvent = errors.New("event: unknown event identifier")
)

// HandlerError reports a handler invocation that returned an error or panicked.
type HandlerError struct {
	Event     string
	Handler   string
	HandlerID string
	Sender    any
	Err       error
	Panicked  bool
	// Stack holds the goroutine stack captured at the panic site.
	Stack []byte
}

func (e *HandlerError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("event: handler %q panicked on %q: %v", e.Handler, e.Event, e.Err)
	}
	return fmt.Sprintf("event: handler %q failed on %q: %v", e.Handler, e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
