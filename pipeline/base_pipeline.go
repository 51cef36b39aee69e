package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/task"
	xmtime "github.com/mensylisir/xmsync/time"
)

// BasePipeline runs its tasks in order over one session.
type BasePipeline struct {
	name        string
	description string
	rt          *runtime.SyncRuntime
	tasks       []task.Task
}

// NewBasePipeline creates a new BasePipeline.
func NewBasePipeline(name, description string, rt *runtime.SyncRuntime) BasePipeline {
	return BasePipeline{
		name:        name,
		description: description,
		rt:          rt,
	}
}

func (bp *BasePipeline) Name() string {
	return bp.name
}

func (bp *BasePipeline) Description() string {
	return bp.description
}

func (bp *BasePipeline) AddTask(t task.Task) {
	bp.tasks = append(bp.tasks, t)
}

// Start implements Pipeline.
func (bp *BasePipeline) Start(ctx context.Context, log *logrus.Entry) (err error) {
	if bp.rt == nil {
		return fmt.Errorf("pipeline %s has no runtime", bp.name)
	}
	log.Infof("starting pipeline %s: %s", bp.name, bp.description)

	defer func() {
		if closeErr := bp.rt.Close(); closeErr != nil {
			log.Warnf("failed to close session: %v", closeErr)
		}
	}()

	if err := bp.rt.Connect(ctx); err != nil {
		return errors.Wrap(err, "failed to connect")
	}
	if banner := bp.rt.Banner(); banner != "" {
		log.Debugf("login banner:\n%s", banner)
	}

	start := time.Now()
	var result *multierror.Error
	for _, t := range bp.tasks {
		tlog := log.WithField(common.TaskName, t.Name())
		execErr := t.Init(bp.rt, tlog)
		if execErr == nil {
			execErr = t.Execute(ctx, bp.rt, tlog)
		}

		fmt.Fprintln(bp.rt.Out())
		if renderErr := t.Summary().Render(bp.rt.Out()); renderErr != nil {
			log.Warnf("failed to print summary: %v", renderErr)
		}
		if execErr != nil {
			result = multierror.Append(result, execErr)
			break
		}
		if t.Summary().Failed() {
			tlog.Warn("finished with tolerated failures")
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Errorf("pipeline %s failed after %s", bp.name, xmtime.Since(start))
		return err
	}
	log.Infof("pipeline %s completed in %s", bp.name, xmtime.Since(start))
	return nil
}
