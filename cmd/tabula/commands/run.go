package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/tabula/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [analyses...]",
		Short: "Run analyses, recomputing only rows without cached results",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			retry, _ := cmd.Flags().GetBool("retry-failures")
			parallel, _ := cmd.Flags().GetInt("parallel")
			out, _ := cmd.Flags().GetString("out")
			return c.app.Run(cmd.Context(), args, app.RunOptions{
				ConfigPath:    c.configPath,
				RetryFailures: retry,
				Parallelism:   parallel,
				OutPath:       out,
				Trace:         c.trace,
			})
		},
	}
	cmd.Flags().BoolP("retry-failures", "r", false, "Recompute rows whose cached result failed")
	cmd.Flags().IntP("parallel", "p", 0, "Number of rows computed concurrently (default: configured, else CPU count)")
	cmd.Flags().StringP("out", "o", "", "Write merged results as JSON Lines to this file")
	return cmd
}
