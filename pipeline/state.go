package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// State is the step a run is in.
type State uint8

const (
	Idle State = iota
	ReadingLocal
	EncodingLocal
	Uploading
	DecodingRemote
	InstallingScene
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ReadingLocal:
		return "ReadingLocal"
	case EncodingLocal:
		return "EncodingLocal"
	case Uploading:
		return "Uploading"
	case DecodingRemote:
		return "DecodingRemote"
	case InstallingScene:
		return "InstallingScene"
	case Failed:
		return "Error"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Event is emitted on every state change and every progress step. The last
// event of a run is either Idle with Progress 100 or Failed with Err set.
type Event struct {
	RunID    uuid.UUID
	State    State
	Progress int
	Err      error
}

var ErrBusy = errors.New("pipeline: a run is already in progress")

// Error is the single error type a run returns. Phase is the state the run
// was in when it failed; Err is the cause (a readers.LocalFormatError,
// transport.TransportError, wire.TruncatedBufferError, mesh error, or the
// context error).
type Error struct {
	Phase State
	RunID uuid.UUID
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed (run %s): %v", e.Phase, e.RunID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
