package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mensylisir/xmsync/runtime"
	"github.com/mensylisir/xmsync/shell"
)

var execCmd = &cobra.Command{
	Use:   "exec -- <command>",
	Short: "Run one command in the target's interactive shell",
	Long: `Opens the same kind of session a sync uses and runs a single command
in it. The cleaned output is printed; a nonzero exit status makes xmsync
exit nonzero too.

Example:
  xmsync exec -c deploy.yaml -- ls -la /var/www`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, cmdArgs []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := runtime.NewRuntime(cfg, args, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if err := rt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	res, err := rt.Runner().Run(ctx, strings.Join(cmdArgs, " "))
	if err != nil {
		return err
	}
	if res.Output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Output)
	}
	if !res.Success() {
		return &shell.RemoteCommandFailure{Result: res}
	}
	return nil
}
