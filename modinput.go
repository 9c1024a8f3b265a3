// Package modinput lets a Go program act as a modular input: an external
// process the host starts to describe, validate and stream events for an
// input kind.
//
// Example usage:
//
//	type ticker struct{}
//
//	func (ticker) Scheme() *definition.Scheme { return definition.NewScheme("Ticker") }
//
//	func (ticker) StreamEvents(ctx context.Context, name string, params definition.Stanza, w modinput.EventWriter) error {
//	    return w.WriteEvent(ctx, &event.Event{Data: "tick"})
//	}
//
//	func main() {
//	    modinput.Main("ticker", ticker{})
//	}
package modinput

import (
	"context"

	"github.com/bft-labs/modinput/pkg/cli"
	core "github.com/bft-labs/modinput/pkg/modinput"
)

// Input is implemented by every input kind.
type Input = core.Input

// EventWriter writes events for one instance into the shared stream.
type EventWriter = core.EventWriter

// Mode selects which exchange a run performs.
type Mode = core.Mode

// Option configures a Runner.
type Option = core.Option

const (
	ModeStream   = core.ModeStream
	ModeScheme   = core.ModeScheme
	ModeValidate = core.ModeValidate
)

// Run performs one exchange with the host on stdin and stdout.
func Run(ctx context.Context, input Input, mode Mode, opts ...Option) error {
	return core.New(input, opts...).Run(ctx, mode)
}

// Main parses the command line, runs input and exits with the run's
// exit code.
func Main(name string, input Input, opts ...cli.Option) {
	cli.Main(name, input, opts...)
}

// ExitCode maps a run error to a process exit code.
func ExitCode(err error) int {
	return core.ExitCode(err)
}
