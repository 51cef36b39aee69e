package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/runtime"
)

// PipelineFactory creates a pipeline bound to a runtime.
type PipelineFactory func(rt *runtime.SyncRuntime) (Pipeline, error)

// Pipeline is a complete run: it owns the session from connect to close.
type Pipeline interface {
	Name() string
	Description() string

	// Start connects, runs every task and closes the session. The summary
	// is printed whatever the outcome.
	Start(ctx context.Context, logger *logrus.Entry) error
}
