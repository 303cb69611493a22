// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"remotectl/pkg/remote"
	"remotectl/pkg/store"
)

// newClientCommands creates the commands that operate on a running host.
func newClientCommands(app *App) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "get KEY",
			Short: "Print the value stored under KEY",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withProxy(cmd, func(ctx context.Context, p *remote.Proxy) error {
					v, err := p.Get(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(app.stdout, v.String())
					return nil
				})
			},
		},
		{
			Use:   "set KEY VALUE",
			Short: "Store VALUE under KEY",
			Long: `Store VALUE under KEY, creating the key if needed.

VALUE is read as a JSON literal (0.05, true, [1, 2], {"a": 1}, "quoted");
anything else is stored as a plain string.`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withProxy(cmd, func(ctx context.Context, p *remote.Proxy) error {
					v := store.ParseLiteral(args[1])
					if err := p.Set(ctx, args[0], v); err != nil {
						return err
					}
					fmt.Fprintf(app.stdout, "%s %s = %s\n", SuccessStyle.Render("✓"), KeyStyle.Render(args[0]), v)
					return nil
				})
			},
		},
		{
			Use:   "len",
			Short: "Print the number of keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.withProxy(cmd, func(ctx context.Context, p *remote.Proxy) error {
					n, err := p.Len(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(app.stdout, n)
					return nil
				})
			},
		},
		{
			Use:   "keys",
			Short: "List keys in insertion order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.withProxy(cmd, func(ctx context.Context, p *remote.Proxy) error {
					keys, err := p.Keys(ctx)
					if err != nil {
						return err
					}
					for _, k := range keys {
						fmt.Fprintln(app.stdout, k)
					}
					return nil
				})
			},
		},
		{
			Use:   "values",
			Short: "List values in key order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.withProxy(cmd, func(ctx context.Context, p *remote.Proxy) error {
					values, err := p.Values(ctx)
					if err != nil {
						return err
					}
					for _, v := range values {
						fmt.Fprintln(app.stdout, v.String())
					}
					return nil
				})
			},
		},
		{
			Use:   "show",
			Short: "Print every key and value as a table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.withProxy(cmd, func(ctx context.Context, p *remote.Proxy) error {
					return app.show(ctx, p)
				})
			},
		},
		{
			Use:   "pause",
			Short: "Hold the host at its next checkpoint",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.withProxy(cmd, func(ctx context.Context, p *remote.Proxy) error {
					if err := p.Pause(ctx); err != nil {
						return err
					}
					return app.printStatus(ctx, p)
				})
			},
		},
		{
			Use:   "resume",
			Short: "Release a paused host",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.withProxy(cmd, func(ctx context.Context, p *remote.Proxy) error {
					if err := p.Resume(ctx); err != nil {
						return err
					}
					return app.printStatus(ctx, p)
				})
			},
		},
		{
			Use:   "status",
			Short: "Show whether the host is paused",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.withProxy(cmd, app.printStatus)
			},
		},
		{
			Use:   "info",
			Short: "Describe the service the host exposes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.withProxy(cmd, func(ctx context.Context, p *remote.Proxy) error {
					info, err := p.Info(ctx)
					if err != nil {
						return err
					}
					ops := make([]string, len(info.Operations))
					for i, op := range info.Operations {
						ops[i] = op.String()
					}
					fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render("name"), info.Name)
					fmt.Fprintf(app.stdout, "%s: %d\n", KeyStyle.Render("protocol"), info.Version)
					fmt.Fprintf(app.stdout, "%s: %t\n", KeyStyle.Render("controller"), info.HasController)
					fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render("operations"), strings.Join(ops, ", "))
					return nil
				})
			},
		},
	}
}

// clientAddress resolves the host to dial: flags first, then the configured
// server address, with wildcard bind addresses replaced by loopback.
func (a *App) clientAddress(cmd *cobra.Command) (string, int) {
	host := a.flags.host
	if host == "" && a.cfg != nil {
		host = string(a.cfg.Server.Host)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = loopbackHost
	}

	port := a.flags.port
	if !cmd.Flags().Changed("port") && a.cfg != nil {
		port = int(a.cfg.Server.Port)
	}
	return host, port
}

// withProxy connects to the host, runs fn and renders any failure.
func (a *App) withProxy(cmd *cobra.Command, fn func(ctx context.Context, p *remote.Proxy) error) error {
	host, port := a.clientAddress(cmd)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ctx := cmd.Context()
	if a.flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.flags.timeout)
		defer cancel()
	}

	p, err := remote.Dial(ctx, addr)
	if err != nil {
		return a.fail(cmd, err, addr)
	}
	defer func() { _ = p.Close() }()

	if err := fn(ctx, p); err != nil {
		return a.fail(cmd, err, addr)
	}
	return nil
}

func (a *App) printStatus(ctx context.Context, p *remote.Proxy) error {
	st, err := p.Status(ctx)
	if err != nil {
		return err
	}
	state := runningStyle.Render("running")
	if st.Paused {
		state = pausedStyle.Render("paused")
	}
	fmt.Fprintf(a.stdout, "%s %s\n", state, SubtitleStyle.Render(fmt.Sprintf("(%d waiting at checkpoint)", st.Waiting)))
	return nil
}

func (a *App) show(ctx context.Context, p *remote.Proxy) error {
	info, err := p.Info(ctx)
	if err != nil {
		return err
	}
	items, err := p.Items(ctx)
	if err != nil {
		return err
	}

	rendered, err := glamour.Render(valuesMarkdown(info.Name.String(), items), a.markdownStyle)
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	fmt.Fprint(a.stdout, rendered)
	return nil
}

// valuesMarkdown renders items as a Markdown table under a heading.
func valuesMarkdown(name string, items []store.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)
	if len(items) == 0 {
		sb.WriteString("_no values_\n")
		return sb.String()
	}

	sb.WriteString("| Key | Kind | Value |\n")
	sb.WriteString("| --- | --- | --- |\n")
	for _, it := range items {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", escapeCell(it.Key), it.Value.Kind(), escapeCell(it.Value.String()))
	}
	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
