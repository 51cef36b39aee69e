package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmsync/pipeline"
	"github.com/mensylisir/xmsync/runtime"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replace the remote target directory with the local source tree",
	Long: `Connects once, then runs the sync steps in order over the same shell:
change directory, pre-hooks, clean target, build archive, upload,
extract, chown, cleanup and post-hooks.

Steps whose error policy is "continue" record a failure and let the run
go on. The exit status is nonzero only when a step aborted the run.

Example:
  xmsync sync -c deploy.yaml`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := runtime.NewRuntime(cfg, args, nil)
	if err != nil {
		return err
	}
	rt.SetOutput(cmd.OutOrStdout())

	p, err := pipeline.GetPipeline(pipeline.SyncPipelineName, rt)
	if err != nil {
		return err
	}
	return p.Start(cmd.Context(), rt.Logger())
}
