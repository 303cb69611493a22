// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"remotectl/internal/config"
)

const (
	// defaultMarkdownStyle lets glamour pick dark, light or plain output.
	defaultMarkdownStyle = "auto"
	// loopbackHost is dialed when the configured server host is a wildcard.
	loopbackHost = "127.0.0.1"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI dependencies. Every command handler receives the App
	// instead of reading package globals, so tests can run commands in-process.
	App struct {
		Config        ConfigProvider
		stdout        io.Writer
		stderr        io.Writer
		markdownStyle string

		flags rootFlags
		// cfg is loaded once per invocation by the root PersistentPreRunE.
		cfg *config.Config
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config        ConfigProvider
		Stdout        io.Writer
		Stderr        io.Writer
		MarkdownStyle string
	}

	rootFlags struct {
		configPath string
		verbose    bool
		host       string
		port       int
		timeout    time.Duration
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:        deps.Config,
		stdout:        deps.Stdout,
		stderr:        deps.Stderr,
		markdownStyle: deps.MarkdownStyle,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.markdownStyle == "" {
		app.markdownStyle = defaultMarkdownStyle
	}
	return app
}

// loadConfig loads the configuration named by --config, or the default search
// path. The result is cached for the rest of the invocation.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}
	if a.flags.verbose {
		cfg.Log.Level = config.LogLevelDebug
	}
	a.cfg = cfg
	return cfg, nil
}

// logger returns a component logger writing to stderr at the configured level.
func (a *App) logger() *log.Logger {
	level := log.InfoLevel
	if a.cfg != nil {
		level = a.cfg.Log.Level.Level()
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}
