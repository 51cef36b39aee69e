// Package archive holds the local side of a sync: packing the source tree
// and shipping it to the target.
package archive

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/exclude"
	"github.com/mensylisir/xmsync/file"
	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/step"
)

// BuildArchiveStep packs the filtered source tree into the local archive.
type BuildArchiveStep struct {
	step.BaseStep

	matcher *exclude.Matcher
	// Stats is set after a successful Execute.
	Stats *file.TarStats
}

func NewBuildArchiveStep() *BuildArchiveStep {
	return &BuildArchiveStep{
		BaseStep: step.NewBaseStep(common.StepBuildArchive, "Pack the source tree"),
	}
}

func (s *BuildArchiveStep) Init(rt runtime.Runtime, log *logrus.Entry) error {
	if err := s.BaseStep.Init(rt, log); err != nil {
		return err
	}
	src := rt.Config().SourceDir
	if ok, err := file.IsDir(src); err != nil || !ok {
		return fmt.Errorf("source_dir %s is not a directory", src)
	}
	m, err := exclude.New(rt.Config().ExcludePatterns)
	if err != nil {
		return err
	}
	s.matcher = m
	return file.CreateDir(rt.WorkDir())
}

func (s *BuildArchiveStep) Execute(ctx context.Context, rt runtime.Runtime, log *logrus.Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := rt.LocalArchive()
	stats, err := file.Tar(rt.Config().SourceDir, dst, file.TarOptions{
		Matcher: s.matcher,
		Visit: func(rel string, excluded bool) {
			if excluded {
				log.Debugf("excluded %s", rel)
			}
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to build archive")
	}
	s.Stats = stats
	size, err := file.Size(dst)
	if err != nil {
		return "", err
	}
	if sum, err := file.LocalMd5Sum(dst); err == nil {
		log.Debugf("archive %s md5 %s", dst, sum)
	}
	return fmt.Sprintf("%d files, %d dirs, %s compressed", stats.Files, stats.Dirs, humanize.IBytes(uint64(size))), nil
}
