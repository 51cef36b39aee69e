package pipeline

import (
	"fmt"

	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/task"
)

const SyncPipelineName = "sync"

func init() {
	if err := Register(SyncPipelineName, NewSyncPipeline); err != nil {
		panic(err)
	}
}

// NewSyncPipeline pushes the configured source tree in one task.
func NewSyncPipeline(rt *runtime.SyncRuntime) (Pipeline, error) {
	if rt == nil {
		return nil, fmt.Errorf("sync pipeline needs a runtime")
	}
	cfg := rt.Config()
	p := NewBasePipeline(SyncPipelineName, fmt.Sprintf("sync %s to %s:%s", cfg.SourceDir, cfg.SSHHost, cfg.TargetDir), rt)
	p.AddTask(task.NewSyncTask(cfg))
	return &p, nil
}
