package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typeduel/go/internal/race/room"
)

// FrameType tags every message sent to a view.
type FrameType string

const (
	FrameState FrameType = "state"
	FrameError FrameType = "error"
)

// Frame is the envelope for server to view messages.
type Frame struct {
	Type    FrameType   `json:"type"`
	State   *room.State `json:"state,omitempty"`
	Command CommandType `json:"command,omitempty"`
	Message string      `json:"message,omitempty"`
}

func stateFrame(st room.State) Frame {
	return Frame{Type: FrameState, State: &st}
}

func errorFrame(cmd CommandType, err error) Frame {
	return Frame{Type: FrameError, Command: cmd, Message: err.Error()}
}

// CommandType names a view action.
type CommandType string

const (
	CommandInput  CommandType = "input"
	CommandJoin   CommandType = "join"
	CommandReady  CommandType = "ready"
	CommandCancel CommandType = "cancel"
	CommandRetry  CommandType = "retry"
)

// Command is a view to server message. Value carries the current-word field
// for input and is ignored otherwise.
type Command struct {
	Type  CommandType `json:"type"`
	Value string      `json:"value,omitempty"`
}

var errUnknownCommand = errors.New("unknown command")

func (c *Connection) handleClientMessage(message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.sendJSON(errorFrame("", fmt.Errorf("malformed command: %w", err)))
		return
	}

	if err := dispatch(c.room, cmd); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("command", string(cmd.Type)).
			Msg("command rejected")
		c.sendJSON(errorFrame(cmd.Type, err))
	}
}

func dispatch(rm *room.Room, cmd Command) error {
	switch cmd.Type {
	case CommandInput:
		return rm.Input(cmd.Value)
	case CommandJoin:
		return rm.Join()
	case CommandReady:
		return rm.Ready()
	case CommandCancel:
		return rm.Cancel()
	case CommandRetry:
		return rm.RetrySubmit()
	default:
		return fmt.Errorf("%w: %q", errUnknownCommand, cmd.Type)
	}
}
