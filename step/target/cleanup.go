package target

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/file"
	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/step"
)

// CleanupStep removes the archive from the target and from the work dir.
type CleanupStep struct {
	step.BaseStep
}

func NewCleanupStep() *CleanupStep {
	return &CleanupStep{
		BaseStep: step.NewBaseStep(common.StepCleanup, "Remove the archive on both ends"),
	}
}

func (s *CleanupStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	return step.RequireSession(rt, s.Name())
}

func (s *CleanupStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) (string, error) {
	if err := file.RemoveIfExists(rt.LocalArchive()); err != nil {
		log.Warnf("%v", err)
	}
	if err := enterTarget(ctx, rt); err != nil {
		return "", errors.Wrap(err, "remote archive left in place")
	}
	op := operation.RemoveArchive{Archive: rt.Config().ArchiveName}
	if _, err := rt.Runner().RunOperation(ctx, op); err != nil {
		return "", errors.Wrap(err, "remote archive left in place")
	}
	return rt.RemoteArchive(), nil
}
