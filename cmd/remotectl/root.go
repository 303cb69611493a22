// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the remotectl command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "remotectl",
		Short: "Share a running process's values over the network",
		Long: TitleStyle.Render("remotectl") + SubtitleStyle.Render(" - share a running process's values over the network") + `

A host process exposes a set of named values. Clients on other machines
read and replace them while the host keeps running, and can pause the host
at its next checkpoint.

` + SubtitleStyle.Render("Examples:") + `
  remotectl serve --seed params.toml     Expose the values in params.toml
  remotectl get learning_rate            Read a value from the host
  remotectl set learning_rate 0.05       Replace it
  remotectl pause                        Hold the host at its next checkpoint
  remotectl show                         Print every value as a table`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsConfig(cmd) {
				return nil
			}
			if _, err := app.loadConfig(cmd.Context()); err != nil {
				return app.fail(cmd, err, "")
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/remotectl/config.cue)")
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	pf.StringVar(&app.flags.host, "host", "", "host address to serve on or connect to (default from config)")
	pf.IntVarP(&app.flags.port, "port", "p", 0, "TCP port to serve on or connect to (default from config)")
	pf.DurationVar(&app.flags.timeout, "timeout", 10*time.Second, "bound each client command (0 waits indefinitely)")

	root.AddCommand(newServeCommand(app))
	root.AddCommand(newClientCommands(app)...)
	root.AddCommand(newConfigCommand(app))

	return root
}

// skipsConfig reports whether cmd works without loading configuration, so
// a broken config file can still be inspected and replaced.
func skipsConfig(cmd *cobra.Command) bool {
	return cmd.Annotations["config"] == "skip"
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(int(exitStatus(err)))
	}
}
