package task

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/config"
	"github.com/mensylisir/xmsync/hook"
	"github.com/mensylisir/xmsync/pipeline/ending"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/step"
)

// BaseTask runs its steps sequentially. A step that fails with nothing but
// nonzero exit statuses is tolerated when its error policy says continue;
// every other failure aborts the task and the remaining steps are skipped.
type BaseTask struct {
	name        string
	description string
	steps       []step.Step
	summary     *ending.Summary
}

// NewBaseTask creates a new BaseTask.
func NewBaseTask(name, description string) BaseTask {
	return BaseTask{
		name:        name,
		description: description,
		steps:       make([]step.Step, 0),
		summary:     &ending.Summary{},
	}
}

func (bt *BaseTask) Name() string {
	return bt.name
}

func (bt *BaseTask) Description() string {
	return bt.description
}

func (bt *BaseTask) AddStep(s step.Step) {
	bt.steps = append(bt.steps, s)
}

func (bt *BaseTask) Summary() *ending.Summary {
	return bt.summary
}

func (bt *BaseTask) stepLog(log *logrus.Entry, i int, s step.Step) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		common.TaskName: bt.name,
		common.StepName: s.Name(),
		"step_index":    fmt.Sprintf("%d/%d", i+1, len(bt.steps)),
	})
}

// Init initializes all added steps. When one fails the summary records it,
// with every step marked as not run.
func (bt *BaseTask) Init(rt runtime.Runtime, log *logrus.Entry) error {
	bt.summary = &ending.Summary{}
	if len(bt.steps) == 0 {
		log.Warnf("task %s has no steps", bt.name)
	}
	for i, s := range bt.steps {
		if err := s.Init(rt, bt.stepLog(log, i, s)); err != nil {
			bt.recordInitFailure(i, err)
			return errors.Wrapf(err, "failed to initialize step %s of task %s", s.Name(), bt.name)
		}
	}
	return nil
}

func (bt *BaseTask) recordInitFailure(failed int, err error) {
	for i, s := range bt.steps {
		res := ending.NewStepResult(s.Name())
		if i == failed {
			res.SetError(err, "failed to initialize")
		} else {
			res.SetSkipped(fmt.Sprintf("not run, %s failed to initialize", bt.steps[failed].Name()))
		}
		bt.summary.Add(res)
	}
}

// stepRun adapts one step to hook.Call.
type stepRun struct {
	ctx     context.Context
	rt      runtime.Runtime
	log     *logrus.Entry
	step    step.Step
	output  string
	execErr error
}

func (r *stepRun) Try() error {
	r.output, r.execErr = r.step.Execute(r.ctx, r.rt, r.log)
	return r.execErr
}

func (r *stepRun) Catch(err error) error {
	r.log.Debugf("step returned: %v", err)
	return err
}

func (r *stepRun) Finally() {
	if err := r.step.Post(r.rt, r.log, r.execErr); err != nil {
		r.log.Warnf("post-execute of step %s failed: %v", r.step.Name(), err)
	}
}

// Execute runs all steps in order and fills the summary.
func (bt *BaseTask) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) error {
	bt.summary = &ending.Summary{}
	var abortErr error
	for i, s := range bt.steps {
		res := ending.NewStepResult(s.Name())
		bt.summary.Add(res)
		if abortErr != nil {
			res.SetSkipped("not run after an earlier failure")
			continue
		}

		slog := bt.stepLog(log, i, s)
		fmt.Fprintf(rt.Out(), "===> %s: %s\n", s.Name(), s.Description())
		run := &stepRun{ctx: ctx, rt: rt, log: slog, step: s}
		start := time.Now()
		err := hook.Call(run)
		res.Duration = time.Since(start)

		if err == nil {
			res.SetSuccess(run.output)
			slog.Debugf("step succeeded: %s", run.output)
			continue
		}
		res.SetError(err, run.output)

		policy := config.PolicyAbort
		if cfg := rt.Config(); cfg != nil {
			policy = cfg.PolicyFor(s.Name())
		}
		if ctx.Err() == nil && step.IsRemoteFailure(err) && policy == config.PolicyContinue {
			res.Tolerated = true
			slog.Warnf("step failed, continuing: %v", err)
			continue
		}
		slog.Errorf("step failed: %v", err)
		abortErr = errors.Wrapf(err, "task %s failed at step %s", bt.name, s.Name())
	}
	return abortErr
}
