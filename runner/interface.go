package runner

import (
	"context"

	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/shell"
)

// Runner executes commands on the remote shell, one at a time.
type Runner interface {
	// Run executes a raw command line such as a user hook. A nonzero exit
	// status is reported in the Result, not as an error.
	Run(ctx context.Context, command string) (*shell.Result, error)

	// RunOperation renders op and executes it. A nonzero exit status is
	// returned as *shell.RemoteCommandFailure alongside the Result.
	RunOperation(ctx context.Context, op operation.Operation) (*shell.Result, error)
}
