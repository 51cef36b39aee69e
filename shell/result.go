package shell

import (
	"fmt"
	"time"
)

// State is the position of the completion detector for one command.
type State int

const (
	// Awaiting means output is still expected.
	Awaiting State = iota
	// CandidateEnd means the buffer ends in a prompt terminator and the
	// debounce timer is running.
	CandidateEnd
	// Confirmed means the debounce window passed in silence.
	Confirmed
	// TimedOut means the command timeout expired first.
	TimedOut
	// Cancelled means the caller's context ended first.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Awaiting:
		return "Awaiting"
	case CandidateEnd:
		return "CandidateEnd"
	case Confirmed:
		return "Confirmed"
	case TimedOut:
		return "TimedOut"
	case Cancelled:
		return "Cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is one command invocation. ExitCode is -1 when it was not captured.
type Result struct {
	Command  string
	Output   string
	Raw      string
	ExitCode int
	Duration time.Duration
	State    State
}

// Success reports a captured zero exit status, or an uncaptured one.
func (r *Result) Success() bool {
	return r.ExitCode <= 0
}
