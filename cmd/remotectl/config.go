// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"remotectl/internal/config"
)

// newConfigCommand creates the `remotectl config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage remotectl configuration",
		Long: `Manage remotectl configuration.

Configuration is read from the first of:
  - the file given with --config
  - Linux: ~/.config/remotectl/config.cue
    macOS: ~/Library/Application Support/remotectl/config.cue
    Windows: %APPDATA%\remotectl\config.cue
  - ./config.cue

REMOTECTL_* environment variables override file values, for example
REMOTECTL_SERVER_PORT=9000 or REMOTECTL_LOG_LEVEL=debug.`,
		Annotations: map[string]string{"config": "skip"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:         "show",
		Short:       "Show the effective configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"config": "skip"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.showConfig(cmd)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a config file holding the defaults",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"config": "skip"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := ""
			if app.flags.configPath != "" {
				dir = filepath.Dir(app.flags.configPath)
			}
			path, err := config.WriteDefault(dir, force)
			if errors.Is(err, config.ErrConfigExists) {
				fmt.Fprintf(app.stdout, "%s %s already exists (use --force to overwrite)\n", WarningStyle.Render("!"), path)
				return nil
			}
			if err != nil {
				return app.fail(cmd, err, "")
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show the configuration directory",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"config": "skip"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return app.fail(cmd, err, "")
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", dir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	return cfgCmd
}

func (a *App) showConfig(cmd *cobra.Command) error {
	cfg, path, err := config.Resolve(cmd.Context(), config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return a.fail(cmd, err, "")
	}

	w := a.stdout
	kv := func(indent, key string, value any) {
		fmt.Fprintf(w, "%s%s: %s\n", indent, KeyStyle.Render(key), SuccessStyle.Render(fmt.Sprint(value)))
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	fmt.Fprintf(w, "\n%s:\n", KeyStyle.Render("server"))
	kv("  ", "host", cfg.Server.Host)
	kv("  ", "port", cfg.Server.Port)
	kv("  ", "name", cfg.Server.Name)

	fmt.Fprintf(w, "\n%s:\n", KeyStyle.Render("console"))
	kv("  ", "enabled", cfg.Console.Enabled)
	kv("  ", "host", cfg.Console.Host)
	kv("  ", "port", cfg.Console.Port)
	hostKey := cfg.Console.HostKeyPath
	if hostKey == "" {
		hostKey = "(ephemeral)"
	}
	kv("  ", "host_key_path", hostKey)

	fmt.Fprintf(w, "\n%s:\n", KeyStyle.Render("loop"))
	kv("  ", "iterations", cfg.Loop.Iterations)
	kv("  ", "step", cfg.Loop.Step)

	seedPath := cfg.Seed.Path
	if seedPath == "" {
		seedPath = "(learning_rate = 0.1)"
	}
	fmt.Fprintln(w)
	kv("", "seed.path", seedPath)
	kv("", "log.level", cfg.Log.Level)
	return nil
}
