package modinput

import (
	"context"

	"github.com/bft-labs/modinput/pkg/event"
	"github.com/bft-labs/modinput/pkg/xmlcodec"
	"github.com/bft-labs/modinput/pkg/xmlstream"
)

// instanceWriter binds the shared stream writer to one instance.
type instanceWriter struct {
	name     string
	out      *xmlstream.Writer
	recorder Recorder
}

func (w *instanceWriter) WriteEvent(ctx context.Context, e *event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ev := *e
	if ev.Stanza == "" {
		ev.Stanza = w.name
	}
	n, err := event.Encode(&ev)
	if err != nil {
		return err
	}
	b, err := xmlcodec.Marshal(n)
	if err != nil {
		return err
	}
	if err := w.out.WriteString(string(b)); err != nil {
		return err
	}
	w.recorder.EventWritten(ev.Stanza, len(b))
	return nil
}
