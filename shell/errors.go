package shell

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrClosed is returned once the shell channel has reached end of stream.
var ErrClosed = errors.New("shell channel closed")

// CommandHangError is returned when a command does not return to a prompt
// within the configured command timeout.
type CommandHangError struct {
	Command string
	Timeout time.Duration
	Partial string
}

func (e *CommandHangError) Error() string {
	return fmt.Sprintf("command %q did not return to a prompt within %s", e.Command, e.Timeout)
}

// RemoteCommandFailure reports a nonzero exit status. The driver never
// returns it; callers that treat a nonzero status as an error do.
type RemoteCommandFailure struct {
	Result *Result
}

func (e *RemoteCommandFailure) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Result.Command, e.Result.ExitCode)
	if e.Result.Output != "" {
		msg += ": " + lastLine(e.Result.Output)
	}
	return msg
}

func lastLine(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return s[i+1:]
		}
	}
	return s
}
