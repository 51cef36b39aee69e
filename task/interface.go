package task

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/pipeline/ending"
	"github.com/mensylisir/xmsync/runtime"
)

// Task is an ordered list of steps run against one runtime.
type Task interface {
	Name() string
	Description() string

	// Init initializes every step; nothing runs if one fails.
	Init(rt runtime.Runtime, logger *logrus.Entry) error

	// Execute runs the steps in order. The summary is available afterwards
	// whatever the outcome.
	Execute(ctx context.Context, rt runtime.Runtime, logger *logrus.Entry) error

	Summary() *ending.Summary
}
