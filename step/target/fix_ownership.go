package target

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/step"
)

// FixOwnershipStep hands the extracted tree back to the login user.
type FixOwnershipStep struct {
	step.BaseStep
}

func NewFixOwnershipStep() *FixOwnershipStep {
	return &FixOwnershipStep{
		BaseStep: step.NewBaseStep(common.StepFixOwnership, "Give the target directory to the login user"),
	}
}

func (s *FixOwnershipStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	return step.RequireSession(rt, s.Name())
}

func (s *FixOwnershipStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) (string, error) {
	cfg := rt.Config()
	op := operation.FixOwnership{User: cfg.SSHUser, Dir: cfg.TargetDir}
	if _, err := rt.Runner().RunOperation(ctx, op); err != nil {
		return "", err
	}
	return cfg.SSHUser, nil
}
