package runner

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/logger"
	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/shell"
)

// Executor is the part of *shell.Driver a runner needs.
type Executor interface {
	Execute(ctx context.Context, command string) (*shell.Result, error)
}

// cmdRunner implements the Runner interface on top of a shell driver.
type cmdRunner struct {
	exec Executor
	log  *logrus.Entry
}

// NewCmdRunner creates a Runner that sends commands through exec.
func NewCmdRunner(exec Executor, log *logrus.Entry) Runner {
	if log == nil {
		log = logrus.NewEntry(logger.Log.Logger)
	}
	return &cmdRunner{exec: exec, log: log}
}

func (r *cmdRunner) Run(ctx context.Context, command string) (*shell.Result, error) {
	log := r.log.WithField(common.CommandName, logger.Log.Redact(command))
	log.Debug("running command")

	res, err := r.exec.Execute(ctx, command)
	if err != nil {
		return res, err
	}
	if res.ExitCode > 0 {
		log.Debugf("command exited with status %d", res.ExitCode)
	}
	return res, nil
}

func (r *cmdRunner) RunOperation(ctx context.Context, op operation.Operation) (*shell.Result, error) {
	command, err := op.Command()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s operation", op.Name())
	}
	res, err := r.Run(ctx, command)
	if err != nil {
		return res, errors.Wrapf(err, "%s failed", op.Name())
	}
	if !res.Success() {
		return res, &shell.RemoteCommandFailure{Result: res}
	}
	return res, nil
}
