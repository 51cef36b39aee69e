package step

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/runtime"
)

// Step is one unit of work of a sync task.
type Step interface {
	// Name returns the short name of the step. It doubles as the key of the
	// step's error policy.
	Name() string

	// Description returns a human-readable description of what the step does.
	Description() string

	// Init validates the step against the runtime before anything runs.
	Init(rt runtime.Runtime, logger *logrus.Entry) error

	// Execute performs the step. The returned output is a short summary for
	// the result table.
	Execute(ctx context.Context, rt runtime.Runtime, logger *logrus.Entry) (output string, err error)

	// Post runs after Execute, whatever its outcome.
	Post(rt runtime.Runtime, logger *logrus.Entry, executeErr error) error
}
