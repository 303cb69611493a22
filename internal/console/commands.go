// SPDX-License-Identifier: MPL-2.0

package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"text/tabwriter"

	"remotectl/internal/protocol"
	"remotectl/internal/server"
	"remotectl/pkg/store"
	"remotectl/pkg/types"
)

type (
	// Interpreter turns console command lines into service requests.
	Interpreter struct {
		handler server.Handler
		nextID  atomic.Uint64
	}

	command struct {
		name    string
		usage   string
		summary string
		nargs   int
		op      protocol.Operation
	}
)

var commands = []command{
	{name: "get", usage: "get KEY", summary: "print the value stored under KEY", nargs: 1, op: protocol.OpGet},
	{name: "set", usage: "set KEY VALUE", summary: "store VALUE (a JSON literal, otherwise a string)", nargs: 2, op: protocol.OpSet},
	{name: "len", usage: "len", summary: "print the number of keys", op: protocol.OpLen},
	{name: "keys", usage: "keys", summary: "list keys in insertion order", op: protocol.OpKeys},
	{name: "values", usage: "values", summary: "list values in key order", op: protocol.OpValues},
	{name: "pause", usage: "pause", summary: "block the host at its next checkpoint", op: protocol.OpPause},
	{name: "resume", usage: "resume", summary: "release a paused host", op: protocol.OpResume},
	{name: "status", usage: "status", summary: "show whether the host is paused", op: protocol.OpStatus},
	{name: "info", usage: "info", summary: "describe the service", op: protocol.OpInfo},
}

// NewInterpreter creates an Interpreter that sends requests to h.
func NewInterpreter(h server.Handler) *Interpreter {
	return &Interpreter{handler: h}
}

// Exec runs one command. Results go to out, diagnostics to errOut. It returns
// ExitUsage for unknown commands or wrong arguments and ExitFailure when the
// service reports an error.
func (in *Interpreter) Exec(ctx context.Context, args []string, out, errOut io.Writer) types.ExitCode {
	if len(args) == 0 {
		return types.ExitOK
	}

	name := strings.ToLower(args[0])
	if name == "help" {
		writeHelp(out)
		return types.ExitOK
	}

	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q; try 'help'\n", args[0])
		return types.ExitUsage
	}
	if len(args)-1 != cmd.nargs {
		fmt.Fprintf(errOut, "usage: %s\n", cmd.usage)
		return types.ExitUsage
	}

	req := protocol.Request{ID: in.nextID.Add(1), Op: cmd.op}
	if cmd.nargs > 0 {
		req.Key = args[1]
	}
	if cmd.op == protocol.OpSet {
		v := store.ParseLiteral(args[2])
		req.Value = &v
	}

	resp := in.handler.Handle(ctx, req)
	if resp.Error != nil {
		fmt.Fprintf(errOut, "error: %s\n", resp.Error.Message)
		return types.ExitFailure
	}
	writeResult(out, cmd.op, resp)
	return types.ExitOK
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func writeResult(w io.Writer, op protocol.Operation, resp protocol.Response) {
	switch op {
	case protocol.OpGet:
		if resp.Value != nil {
			fmt.Fprintln(w, resp.Value.String())
		}
	case protocol.OpSet:
		fmt.Fprintln(w, "ok")
	case protocol.OpLen:
		if resp.Length != nil {
			fmt.Fprintln(w, *resp.Length)
		}
	case protocol.OpKeys:
		for _, k := range resp.Keys {
			fmt.Fprintln(w, k)
		}
	case protocol.OpValues:
		for _, v := range resp.Values {
			fmt.Fprintln(w, v.String())
		}
	case protocol.OpPause, protocol.OpResume, protocol.OpStatus:
		if resp.Status != nil {
			state := "running"
			if resp.Status.Paused {
				state = "paused"
			}
			fmt.Fprintf(w, "%s (waiting: %d)\n", state, resp.Status.Waiting)
		}
	case protocol.OpInfo:
		if info := resp.Info; info != nil {
			ops := make([]string, len(info.Operations))
			for i, o := range info.Operations {
				ops[i] = o.String()
			}
			fmt.Fprintf(w, "name: %s\nversion: %d\ncontroller: %t\noperations: %s\n",
				info.Name, info.Version, info.HasController, strings.Join(ops, ", "))
		}
	}
}

func writeHelp(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.usage, c.summary)
	}
	fmt.Fprintf(tw, "  %s\t%s\n", "help", "show this help")
	fmt.Fprintf(tw, "  %s\t%s\n", "exit", "end an interactive session")
	_ = tw.Flush()
}
