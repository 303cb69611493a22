// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	HostUnreachableId Id = iota + 1
	AddressInUseId
	KeyNotFoundId
	NoControllerId
	ConfigLoadFailedId
	SeedLoadFailedId
	ConnectionLostId
)

type (
	// Id identifies a Markdown guide.
	Id int

	// MarkdownMsg is Markdown source.
	MarkdownMsg string

	// Issue is a remediation guide for a class of failures.
	Issue struct {
		id    Id
		mdMsg MarkdownMsg
	}
)

// Id returns the issue identifier.
func (i *Issue) Id() Id { return i.id }

// MarkdownMsg returns the unrendered guide.
func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// Render renders the guide for a terminal. stylePath is a glamour style name
// ("dark", "light", "notty") or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	hostUnreachableIssue = &Issue{
		id: HostUnreachableId,
		mdMsg: `
# Could not reach the host

No remotectl service answered at the requested address.

## Things you can try
- Check that the host process is running:
~~~
$ remotectl serve
~~~
- Pass the right address with ` + "`--host`" + ` and ` + "`--port`" + ` (default port 12345).
- Make sure no firewall blocks the port between the two machines.`,
	}

	addressInUseIssue = &Issue{
		id: AddressInUseId,
		mdMsg: `
# The address is already taken

Another process is listening on the port remotectl tried to bind.

## Things you can try
- Stop the other process, or choose another port:
~~~
$ remotectl serve --port 12346
~~~
- Use port 0 to let the system pick a free port.`,
	}

	keyNotFoundIssue = &Issue{
		id: KeyNotFoundId,
		mdMsg: `
# No such key

The host does not hold a value under that key.

## Things you can try
- List the available keys:
~~~
$ remotectl keys
~~~
- Create the key first with ` + "`remotectl set KEY VALUE`" + `.`,
	}

	noControllerIssue = &Issue{
		id: NoControllerId,
		mdMsg: `
# The host exposes no pause controller

This host was launched without a controller, so it cannot be paused or
resumed remotely. Values can still be read and written.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

## Things you can try
- Print the effective configuration:
~~~
$ remotectl config show
~~~
- Compare your file with the defaults written by ` + "`remotectl config init`" + `.
- Check the CUE syntax; field names are ` + "`server`, `console`, `loop`, `seed` and `log`" + `.`,
	}

	seedLoadFailedIssue = &Issue{
		id: SeedLoadFailedId,
		mdMsg: `
# The seed file could not be loaded

The seed file provides the initial values a host exposes.

## Things you can try
- Use a ` + "`.toml`, `.yaml`, `.yml`, `.json` or `.cue`" + ` extension.
- Make the top level a mapping, for example:
~~~yaml
learning_rate: 0.1
epochs: 100
~~~`,
	}

	connectionLostIssue = &Issue{
		id: ConnectionLostId,
		mdMsg: `
# The connection to the host was lost

The host stopped or the network failed in the middle of a call. The call may
or may not have taken effect on the host.

## Things you can try
- Check the host with ` + "`remotectl status`" + ` and retry.`,
	}

	issues = map[Id]*Issue{
		hostUnreachableIssue.Id():  hostUnreachableIssue,
		addressInUseIssue.Id():     addressInUseIssue,
		keyNotFoundIssue.Id():      keyNotFoundIssue,
		noControllerIssue.Id():     noControllerIssue,
		configLoadFailedIssue.Id(): configLoadFailedIssue,
		seedLoadFailedIssue.Id():   seedLoadFailedIssue,
		connectionLostIssue.Id():   connectionLostIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Of returns the guide attached to the first ActionableError in err's chain.
func Of(err error) *Issue {
	var ae *ActionableError
	if !errors.As(err, &ae) || ae.Issue == 0 {
		return nil
	}
	return Get(ae.Issue)
}

// Plain returns the guide without Markdown rendering, for non-terminal output.
func (i *Issue) Plain() string {
	return strings.TrimSpace(string(i.mdMsg))
}
