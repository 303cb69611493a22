// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"remotectl/internal/config"
	"remotectl/internal/console"
	"remotectl/internal/hostloop"
	"remotectl/internal/issue"
	"remotectl/internal/seed"
	"remotectl/pkg/remote"
	"remotectl/pkg/store"
	"remotectl/pkg/types"
)

type serveFlags struct {
	seedPath    string
	name        string
	iterations  int
	step        time.Duration
	console     bool
	consolePort int
}

func newServeCommand(app *App) *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose shared values and run the host loop",
		Long: `Expose shared values on the network and run the host loop.

The initial values come from --seed (TOML, YAML, JSON or CUE), the seed.path
config setting, or a single learning_rate of 0.1. Each loop iteration waits
--step and then stops at a checkpoint while a client holds the host paused.
With --iterations 0 the loop runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := app.serveOptions(cmd, flags)
			if err != nil {
				return app.fail(cmd, err, "")
			}
			if err := app.serve(cmd.Context(), opts); err != nil {
				return app.fail(cmd, err, opts.address())
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.seedPath, "seed", "", "file with the initial values (.toml, .yaml, .json, .cue)")
	f.StringVar(&flags.name, "name", "", "service name reported to clients")
	f.IntVar(&flags.iterations, "iterations", 0, "host loop iterations, 0 runs until interrupted (default from config)")
	f.DurationVar(&flags.step, "step", 0, "delay between iterations (default from config)")
	f.BoolVar(&flags.console, "console", false, "also serve the SSH operator console")
	f.IntVar(&flags.consolePort, "console-port", 0, "SSH console port (default from config)")

	return cmd
}

// serveOptions is the resolved input of one serve run.
type serveOptions struct {
	entries []store.Entry
	name    types.ServiceName
	host    types.HostAddress
	port    types.ListenPort
	loop    config.LoopConfig
	console *console.Config
	// ready, when set, receives the running host before the loop starts.
	ready func(*remote.Host, *console.Server)
}

func (o serveOptions) address() string { return o.host.JoinPort(o.port) }

// serveOptions merges flags over the loaded configuration. A flag wins only
// when it was given on the command line.
func (a *App) serveOptions(cmd *cobra.Command, flags serveFlags) (serveOptions, error) {
	cfg := a.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	changed := cmd.Flags().Changed

	opts := serveOptions{
		name: cfg.Server.Name,
		host: cfg.Server.Host,
		port: cfg.Server.Port,
		loop: cfg.Loop,
	}
	if a.flags.host != "" {
		opts.host = types.HostAddress(a.flags.host)
	}
	if changed("port") {
		opts.port = types.ListenPort(a.flags.port)
	}
	if changed("name") {
		opts.name = types.ServiceName(flags.name)
	}
	if changed("iterations") {
		opts.loop.Iterations = flags.iterations
	}
	if changed("step") {
		opts.loop.Step = flags.step
	}
	if err := opts.loop.Validate(); err != nil {
		return serveOptions{}, err
	}

	if cfg.Console.Enabled || flags.console {
		cc := console.Config{
			Host:        cfg.Console.Host,
			Port:        cfg.Console.Port,
			HostKeyPath: cfg.Console.HostKeyPath,
		}
		if changed("console-port") {
			cc.Port = types.ListenPort(flags.consolePort)
		}
		opts.console = &cc
	}

	seedPath := cfg.Seed.Path
	if changed("seed") {
		seedPath = flags.seedPath
	}
	entries, err := loadSeed(seedPath)
	if err != nil {
		return serveOptions{}, err
	}
	opts.entries = entries
	return opts, nil
}

func loadSeed(path string) ([]store.Entry, error) {
	if path == "" {
		return seed.Default(), nil
	}
	entries, err := seed.Load(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load seed values").
			WithResource(path).
			WithSuggestion("Check the file extension and that the top level is a mapping").
			WithIssue(issue.SeedLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return entries, nil
}

// serve runs a host until the loop finishes, ctx is cancelled, or the
// runtime fails. Interruption is a normal way to end.
func (a *App) serve(ctx context.Context, opts serveOptions) error {
	logger := a.logger()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	host, err := remote.Launch(ctx, opts.entries,
		remote.WithName(opts.name),
		remote.WithAddress(opts.host, opts.port),
		remote.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() { _ = host.Stop() }()

	var con *console.Server
	if opts.console != nil {
		con = console.New(host.Service(), *opts.console, console.WithLogger(logger.WithPrefix("console")))
		if err := con.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = con.Stop() }()
		fmt.Fprintf(a.stdout, "%s console on %s\n", SuccessStyle.Render("✓"), con.Address())
	}

	fmt.Fprintf(a.stdout, "%s serving %s on %s (%d values)\n",
		SuccessStyle.Render("✓"), KeyStyle.Render(opts.name.OrDefault().String()), host.Address(), host.Store().Len())

	go func() {
		select {
		case err := <-host.Err():
			cancel(err)
		case <-ctx.Done():
		}
	}()

	if opts.ready != nil {
		opts.ready(host, con)
	}

	loop := hostloop.Loop{
		Iterations: opts.loop.Iterations,
		Step:       opts.loop.Step,
		Controller: host,
		Logger:     logger.WithPrefix("loop"),
		Work: func(_ context.Context, i int) error {
			logger.Debug("values", "iteration", i, "len", host.Store().Len())
			return nil
		},
	}

	err = loop.Run(ctx)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
