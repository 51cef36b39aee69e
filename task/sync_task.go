package task

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/config"
	"github.com/mensylisir/xmsync/exclude"
	"github.com/mensylisir/xmsync/file"
	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/step/archive"
	"github.com/mensylisir/xmsync/step/runcmd"
	"github.com/mensylisir/xmsync/step/target"
)

const SyncTaskName = "sync"

var _ Task = (*SyncTask)(nil)

// SyncTask pushes the source tree to the target directory.
type SyncTask struct {
	BaseTask
}

// NewSyncTask builds the steps in execution order, with hook and clean
// steps told whether to keep going after a failing command.
func NewSyncTask(cfg *config.SyncConfig) *SyncTask {
	cont := func(name string) bool { return cfg.PolicyFor(name) == config.PolicyContinue }

	pre := runcmd.NewRunCommandStep(common.StepPreHooks, "Run commands before the sync", cfg.BeforeSyncCommands)
	pre.ContinueOnFailure = cont(common.StepPreHooks)
	clean := target.NewCleanTargetStep()
	clean.ContinueOnFailure = cont(common.StepCleanTarget)
	post := runcmd.NewRunCommandStep(common.StepPostHooks, "Run commands after the sync", cfg.AfterSyncCommands)
	post.ContinueOnFailure = cont(common.StepPostHooks)

	t := &SyncTask{BaseTask: NewBaseTask(SyncTaskName, fmt.Sprintf("push %s to %s", cfg.SourceDir, cfg.TargetDir))}
	t.AddStep(target.NewChangeDirectoryStep())
	t.AddStep(pre)
	t.AddStep(clean)
	t.AddStep(archive.NewBuildArchiveStep())
	t.AddStep(archive.NewUploadArchiveStep())
	t.AddStep(target.NewExtractArchiveStep())
	t.AddStep(target.NewFixOwnershipStep())
	t.AddStep(target.NewCleanupStep())
	t.AddStep(post)
	return t
}

// Execute runs the sync. The local archive is removed on every exit path.
func (t *SyncTask) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) error {
	defer func() {
		if err := file.RemoveIfExists(rt.LocalArchive()); err != nil {
			log.Warnf("%v", err)
		}
	}()
	return t.BaseTask.Execute(ctx, rt, log)
}

// PlanEntry is one step of a dry run with the actions it would take.
type PlanEntry struct {
	Step    string
	Actions []string
}

// SyncPlan is what a sync would do, computed without connecting.
type SyncPlan struct {
	Steps []PlanEntry
	// Files are the archive entries, relative to the source directory.
	Files []string
}

// Plan describes a sync of cfg. Remote listings are unknown offline, so
// the clean step is described by its exclusion patterns.
func Plan(cfg *config.SyncConfig) (*SyncPlan, error) {
	m, err := exclude.New(cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	files, err := file.ListFiles(cfg.SourceDir, m)
	if err != nil {
		return nil, err
	}

	remote := path.Join(cfg.TargetDir, cfg.ArchiveName)
	keep := "nothing"
	if len(m.Patterns()) > 0 {
		keep = strings.Join(m.Patterns(), ", ")
	}
	p := &SyncPlan{Files: files}
	cd := operation.Render(operation.ChangeDirectory{Dir: cfg.TargetDir})
	for _, name := range common.SyncSteps {
		var actions []string
		switch name {
		case common.StepChangeDirectory:
			actions = []string{cd}
		case common.StepPreHooks:
			actions = cfg.BeforeSyncCommands
		case common.StepCleanTarget:
			actions = []string{
				cd,
				fmt.Sprintf(common.RemoveEntryTpl+" for every entry of %s, keeping %s", "<entry>", cfg.TargetDir, keep),
			}
		case common.StepBuildArchive:
			actions = []string{fmt.Sprintf("pack %d files from %s", len(files), cfg.SourceDir)}
		case common.StepUploadArchive:
			actions = []string{"upload to " + remote}
		case common.StepExtractArchive:
			actions = []string{cd, operation.Render(operation.ExtractArchive{Archive: cfg.ArchiveName, Dir: cfg.TargetDir})}
		case common.StepFixOwnership:
			actions = []string{operation.Render(operation.FixOwnership{User: cfg.SSHUser, Dir: cfg.TargetDir})}
		case common.StepCleanup:
			actions = []string{cd, operation.Render(operation.RemoveArchive{Archive: cfg.ArchiveName})}
		case common.StepPostHooks:
			actions = cfg.AfterSyncCommands
		}
		p.Steps = append(p.Steps, PlanEntry{Step: name, Actions: actions})
	}
	return p, nil
}
