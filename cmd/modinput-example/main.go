package main

import (
	"strings"

	"github.com/bft-labs/modinput/pkg/cli"
)

const helpDescription = `
Writes random numbers between min and max as events.

The host runs this program three ways:
  - with --scheme to learn its arguments,
  - with --validate-arguments to check a proposed configuration,
  - with no mode flag to stream events for every configured instance.

Each instance keeps a running count in the host's checkpoint directory.
`

var exampleUsage = strings.TrimSpace(`
  modinput-example --scheme
  modinput-example --validate-arguments < items.xml
  modinput-example --in input.xml --log-level debug
`)

func main() {
	cli.Main("modinput-example", newRandomInput(),
		cli.WithShort("Stream random numbers to the host"),
		cli.WithLong(strings.TrimSpace(helpDescription)),
		cli.WithExample(exampleUsage),
	)
}
