package target

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/step"
)

// ExtractArchiveStep unpacks the uploaded archive into the target directory.
type ExtractArchiveStep struct {
	step.BaseStep
}

func NewExtractArchiveStep() *ExtractArchiveStep {
	return &ExtractArchiveStep{
		BaseStep: step.NewBaseStep(common.StepExtractArchive, "Extract the archive into the target directory"),
	}
}

func (s *ExtractArchiveStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	return step.RequireSession(rt, s.Name())
}

func (s *ExtractArchiveStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) (string, error) {
	if err := enterTarget(ctx, rt); err != nil {
		return "", err
	}
	cfg := rt.Config()
	op := operation.ExtractArchive{Archive: cfg.ArchiveName, Dir: cfg.TargetDir}
	if _, err := rt.Runner().RunOperation(ctx, op); err != nil {
		return "", err
	}
	return operation.Render(op), nil
}
