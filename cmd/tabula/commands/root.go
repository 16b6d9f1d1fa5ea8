// Package commands implements the CLI commands for tabula.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/tabula/internal/adapters/config"
	"go.trai.ch/tabula/internal/app"
	"go.trai.ch/tabula/internal/build"
	"go.trai.ch/tabula/internal/core/ports"
)

// jsonSwitcher is implemented by loggers that can switch to JSON output.
type jsonSwitcher interface {
	SetJSON(enable bool)
}

// CLI represents the command line interface for tabula.
type CLI struct {
	app     *app.App
	logger  ports.Logger
	rootCmd *cobra.Command

	configPath string
	jsonLogs   bool
	trace      string
}

// New creates a new CLI instance with the given app.
func New(a *app.App, log ports.Logger) *CLI {
	c := &CLI{
		app:    a,
		logger: log,
	}

	rootCmd := &cobra.Command{
		Use:           "tabula",
		Short:         "Incremental, cached analyses over research tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if s, ok := c.logger.(jsonSwitcher); ok && c.jsonLogs {
				s.SetJSON(true)
			}
		},
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultFilename, "Path to the settings file")
	rootCmd.PersistentFlags().BoolVar(&c.jsonLogs, "json", false, "Log as JSON")
	rootCmd.PersistentFlags().StringVar(&c.trace, "trace", "none", "Trace run stages and rows: none, otel or progrock")

	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newSnapshotCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetOutput sets the destination of command output. Used for testing.
func (c *CLI) SetOutput(w io.Writer) {
	c.rootCmd.SetOut(w)
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}
