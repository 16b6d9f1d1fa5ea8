package commands

import "github.com/spf13/cobra"

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and remove cached results",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ls <cacheName>",
		Short: "List cache entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.app.ListCache(c.configPath, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <analysis>",
		Short: "Delete an analysis' cache from all cache roots",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.app.DeleteCache(c.configPath, args[0])
		},
	})

	return cmd
}
