package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmsync/task"
)

var planFiles bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a sync would do without connecting",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().BoolVar(&planFiles, "files", false, "List every file that would be packed")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := task.Plan(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sync %s to %s@%s:%s\n\n", cfg.SourceDir, cfg.SSHUser, cfg.SSHHost, cfg.TargetDir)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, e := range p.Steps {
		if len(e.Actions) == 0 {
			fmt.Fprintf(tw, "%d\t%s\t(nothing)\n", i+1, e.Step)
			continue
		}
		for j, a := range e.Actions {
			if j == 0 {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, e.Step, a)
			} else {
				fmt.Fprintf(tw, "\t\t%s\n", a)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s in the archive\n", english.Plural(len(p.Files), "file", ""))
	if planFiles {
		for _, f := range p.Files {
			fmt.Fprintln(out, "  "+f)
		}
	}
	return nil
}
