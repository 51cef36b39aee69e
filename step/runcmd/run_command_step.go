package runcmd

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/logger"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/shell"
	"github.com/mensylisir/xmsync/step"
)

// RunCommandStep runs user hook commands in order and prints their output.
type RunCommandStep struct {
	step.BaseStep
	Commands []string
	// ContinueOnFailure keeps running the remaining commands after one exits
	// nonzero. All failures are then reported together.
	ContinueOnFailure bool
}

// NewRunCommandStep creates a new RunCommandStep.
func NewRunCommandStep(name, description string, commands []string) *RunCommandStep {
	return &RunCommandStep{
		BaseStep: step.NewBaseStep(name, description),
		Commands: commands,
	}
}

func (s *RunCommandStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	for i, c := range s.Commands {
		if c == "" {
			return fmt.Errorf("command %d of step %s is empty", i+1, s.Name())
		}
	}
	if len(s.Commands) == 0 {
		return nil
	}
	return step.RequireSession(rt, s.Name())
}

func (s *RunCommandStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) (string, error) {
	if len(s.Commands) == 0 {
		return "no commands", nil
	}
	var failures *multierror.Error
	ran := 0
	for _, command := range s.Commands {
		fmt.Fprintf(rt.Out(), "$ %s\n", logger.Log.Redact(command))
		res, err := rt.Runner().Run(ctx, command)
		if err != nil {
			return fmt.Sprintf("%d of %d commands ran", ran, len(s.Commands)), err
		}
		ran++
		if res.Output != "" {
			fmt.Fprintln(rt.Out(), logger.Log.Redact(res.Output))
		}
		if res.Success() {
			continue
		}
		log.Warnf("command exited with status %d: %s", res.ExitCode, logger.Log.Redact(command))
		failures = multierror.Append(failures, &shell.RemoteCommandFailure{Result: res})
		if !s.ContinueOnFailure {
			break
		}
	}
	summary := fmt.Sprintf("%d of %d commands ran", ran, len(s.Commands))
	if failures != nil {
		summary += fmt.Sprintf(", %d failed", len(failures.Errors))
	}
	return summary, failures.ErrorOrNil()
}
