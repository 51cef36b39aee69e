package target

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/exclude"
	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/step"
)

// CleanTargetStep removes every top-level entry of the target directory
// that the exclusion patterns do not protect.
type CleanTargetStep struct {
	step.BaseStep
	// ContinueOnFailure keeps removing entries after one removal fails.
	ContinueOnFailure bool

	matcher *exclude.Matcher
}

func NewCleanTargetStep() *CleanTargetStep {
	return &CleanTargetStep{
		BaseStep: step.NewBaseStep(common.StepCleanTarget, "Remove stale entries from the target directory"),
	}
}

func (s *CleanTargetStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	m, err := exclude.New(rt.Config().ExcludePatterns)
	if err != nil {
		return err
	}
	s.matcher = m
	return step.RequireSession(rt, s.Name())
}

// Entries returns the names that would be removed from listing, in order.
func (s *CleanTargetStep) Entries(listing []string) []string {
	kept, _ := s.matcher.Partition(listing)
	sort.Strings(kept)
	return kept
}

func (s *CleanTargetStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) (string, error) {
	dir := rt.Config().TargetDir
	infos, err := rt.Transfer().ReadDir(ctx, dir)
	if err != nil {
		return "", errors.Wrapf(err, "failed to list %s", dir)
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	victims := s.Entries(names)
	log.Debugf("%d entries in %s, %d to remove", len(names), dir, len(victims))

	if err := enterTarget(ctx, rt); err != nil {
		return "", err
	}
	if len(victims) == 0 {
		return "nothing to remove", nil
	}

	var failures *multierror.Error
	removed := 0
	for _, name := range victims {
		_, err := rt.Runner().RunOperation(ctx, operation.RemoveEntry{Entry: name})
		if err == nil {
			removed++
			continue
		}
		if !step.IsRemoteFailure(err) {
			return fmt.Sprintf("removed %d of %d entries", removed, len(victims)), err
		}
		log.Warnf("failed to remove %s: %v", name, err)
		failures = multierror.Append(failures, err)
		if !s.ContinueOnFailure {
			break
		}
	}
	return fmt.Sprintf("removed %d of %d entries, kept %d", removed, len(victims), len(names)-len(victims)), failures.ErrorOrNil()
}
