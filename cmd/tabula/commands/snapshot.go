package commands

import "github.com/spf13/cobra"

func (c *CLI) newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, restore and list named snapshots of an analysis' cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save <analysis> <name>",
		Short: "Save the current cache as a named snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.app.SaveSnapshot(c.configPath, args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "load <analysis> [name]",
		Short: "Restore a snapshot as the current cache (default: most recent with the current param)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return c.app.LoadSnapshot(c.configPath, args[0], name)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ls <analysis>",
		Short: "List snapshots, newest first; * marks those taken with the current param",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.app.ListSnapshots(c.configPath, args[0])
		},
	})

	return cmd
}
