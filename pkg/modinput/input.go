package modinput

import (
	"context"

	"github.com/bft-labs/modinput/pkg/definition"
	"github.com/bft-labs/modinput/pkg/event"
)

// Input is implemented by every input kind.
//
// StreamEvents is called once per configured instance, concurrently with
// the other instances, and should return when it has nothing more to
// write or when ctx is done.
type Input interface {
	Scheme() *definition.Scheme
	StreamEvents(ctx context.Context, name string, params definition.Stanza, w EventWriter) error
}

// Validator is implemented by inputs that check proposed configurations.
// An input without it accepts every configuration.
type Validator interface {
	ValidateInput(ctx context.Context, req *definition.ValidationRequest) error
}

// Starter is called for an instance before StreamEvents.
type Starter interface {
	Start(ctx context.Context, name string, params definition.Stanza) error
}

// Ender is called for an instance after StreamEvents returned nil.
type Ender interface {
	End(ctx context.Context, name string, params definition.Stanza) error
}

// SetupHook runs once in stream mode, after the configuration is decoded
// and before any instance starts.
type SetupHook interface {
	Setup(ctx context.Context, meta definition.Metadata) error
}

// TeardownHook runs once in stream mode after the stream is closed.
type TeardownHook interface {
	Teardown(ctx context.Context) error
}

// EventWriter writes events for one instance into the shared stream.
// It is safe for concurrent use.
type EventWriter interface {
	// WriteEvent encodes e and writes it. An empty e.Stanza is replaced with
	// the instance name. It returns once the bytes reached the output.
	WriteEvent(ctx context.Context, e *event.Event) error
}
