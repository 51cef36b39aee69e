// Package target holds the steps that run against the remote target
// directory through the interactive shell.
package target

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/step"
)

// ChangeDirectoryStep enters the target directory. Later relative commands
// depend on it.
type ChangeDirectoryStep struct {
	step.BaseStep
}

func NewChangeDirectoryStep() *ChangeDirectoryStep {
	return &ChangeDirectoryStep{
		BaseStep: step.NewBaseStep(common.StepChangeDirectory, "Enter the remote target directory"),
	}
}

func (s *ChangeDirectoryStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	return step.RequireSession(rt, s.Name())
}

func (s *ChangeDirectoryStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) (string, error) {
	if err := enterTarget(ctx, rt); err != nil {
		return "", err
	}
	return rt.Config().TargetDir, nil
}

// enterTarget changes into the target directory. Steps that pass relative
// names call it first, since a hook may have left the shell elsewhere.
func enterTarget(ctx context.Context, rt runtime.Runtime) error {
	_, err := rt.Runner().RunOperation(ctx, operation.ChangeDirectory{Dir: rt.Config().TargetDir})
	return err
}
