package websocket

import (
	"context"
	"fmt"

	"covidpulse/pkg/contracts/events"
)

// CommandHandler executes commands sent by browsers and provides the state
// a browser receives when it connects
type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd events.Command) error
	InitialState(ctx context.Context) (interface{}, error)
}

// CommandError is returned by a CommandHandler to send a coded error back to
// the browser that issued the command
type CommandError struct {
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a coded command error
func NewCommandError(code, message string, err error) *CommandError {
	return &CommandError{Code: code, Message: message, Err: err}
}
