// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"remotectl/internal/issue"
	"remotectl/internal/protocol"
	"remotectl/internal/server"
	"remotectl/pkg/remote"
	"remotectl/pkg/store"
	"remotectl/pkg/types"
)

// classify attaches an operation, suggestions and a guide to a failure from
// the remote layer. Errors that already carry that context pass through.
func classify(err error, addr string) error {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	var (
		te *remote.TransportError
		re *remote.RemoteError
		be *server.BindError
	)
	switch {
	case errors.As(err, &te) && te.Op == "dial":
		return issue.NewErrorContext().
			WithOperation("connect to host").
			WithResource(addr).
			WithSuggestion("Check that 'remotectl serve' is running on the host").
			WithSuggestion("Pass the host address with --host and --port").
			WithIssue(issue.HostUnreachableId).
			Wrap(err).
			BuildError()
	case errors.Is(err, remote.ErrTransport):
		return issue.NewErrorContext().
			WithOperation("call host").
			WithResource(addr).
			WithSuggestion("The host may have stopped; check it with 'remotectl status'").
			WithIssue(issue.ConnectionLostId).
			Wrap(err).
			BuildError()
	case errors.Is(err, store.ErrKeyNotFound):
		return issue.NewErrorContext().
			WithOperation("read value").
			WithSuggestion("List the available keys with 'remotectl keys'").
			WithIssue(issue.KeyNotFoundId).
			Wrap(err).
			BuildError()
	case errors.As(err, &re) && re.Code == protocol.CodeNoController:
		return issue.NewErrorContext().
			WithOperation("control host").
			WithResource(addr).
			WithIssue(issue.NoControllerId).
			Wrap(err).
			BuildError()
	case errors.As(err, &be):
		return issue.NewErrorContext().
			WithOperation("bind address").
			WithResource(be.Addr).
			WithSuggestion("Choose another port with --port, or 0 for any free port").
			WithIssue(issue.AddressInUseId).
			Wrap(err).
			BuildError()
	default:
		return err
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their Format method; verbose mode adds the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError prints err and, when one is attached, its remediation guide.
func renderError(w io.Writer, err error, verbose bool, style string) {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	is := issue.Of(err)
	if is == nil {
		return
	}
	rendered, renderErr := is.Render(style)
	if renderErr != nil {
		fmt.Fprintf(w, "\n%s\n", is.Plain())
		return
	}
	fmt.Fprint(w, rendered)
}

// fail renders err on stderr and returns an ExitError so the CLI exits
// non-zero without printing err a second time.
func (a *App) fail(cmd *cobra.Command, err error, addr string) error {
	err = classify(err, addr)
	renderError(a.stderr, err, a.flags.verbose, a.markdownStyle)
	cmd.SilenceErrors = true
	cmd.Root().SilenceErrors = true
	return &ExitError{Code: types.ExitFailure, Err: err}
}
