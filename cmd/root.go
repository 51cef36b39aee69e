// Package cmd holds the xmsync command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/config"
	"github.com/mensylisir/xmsync/logger"
	"github.com/mensylisir/xmsync/runtime"
)

var (
	// Version is set at build time
	Version = "dev"

	args = runtime.NewCliArgs()
)

var rootCmd = &cobra.Command{
	Use:   "xmsync",
	Short: "Push a local source tree to a remote directory over SSH",
	Long: `xmsync replaces the contents of a remote directory with a local source
tree. Everything runs over one interactive SSH shell: the target is
cleaned, the tree is uploaded as a gzipped tarball, unpacked with sudo and
handed to the SSH user.

Quick start:
  xmsync plan -c config.json   # show what a sync would do
  xmsync sync -c config.json   # run it
  xmsync exec -- uptime        # run one command on the target`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return logger.InitGlobalLogger(args.LogDir, args.Verbose, logrus.InfoLevel)
	},
}

// ExecuteContext runs the root command with ctx, which subcommands use to
// cancel remote work.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&args.Verbose, "verbose", "v", false, "Show debug logs")
	rootCmd.PersistentFlags().StringVarP(&args.ConfigPath, "config", "c", common.DefaultConfigFile, "Config file, YAML or JSON")
	rootCmd.PersistentFlags().StringVar(&args.LogDir, "log-dir", "", "Write logs to a rotated file in this directory instead of the console")

	rootCmd.SetVersionTemplate(`xmsync {{.Version}}
`)
}

// loadConfig reads the config named by --config. A log_dir in the file
// applies when --log-dir was not given.
func loadConfig() (*config.SyncConfig, error) {
	cfg, err := config.LoadSyncConfig(args.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if args.LogDir == "" && cfg.LogDir != "" {
		args.LogDir = cfg.LogDir
		if err := logger.InitGlobalLogger(args.LogDir, args.Verbose, logrus.InfoLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
