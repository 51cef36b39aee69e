package archive

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/progress"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/step"
)

// UploadArchiveStep copies the local archive into the target directory over
// the transfer channel.
type UploadArchiveStep struct {
	step.BaseStep
}

func NewUploadArchiveStep() *UploadArchiveStep {
	return &UploadArchiveStep{
		BaseStep: step.NewBaseStep(common.StepUploadArchive, "Upload the archive"),
	}
}

func (s *UploadArchiveStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	return step.RequireSession(rt, s.Name())
}

func (s *UploadArchiveStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) (string, error) {
	remote := rt.RemoteArchive()
	reporter := progress.New(rt.Out(), "upload "+rt.Config().ArchiveName)
	reporter.Logf = log.Infof
	err := rt.Transfer().Upload(ctx, rt.LocalArchive(), remote, reporter.Func())
	if err != nil {
		return "", err
	}
	reporter.Finish()
	return remote, nil
}
