package xmlstream

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sync"

	"github.com/bft-labs/modinput/pkg/xmlcodec"
)

type flusher interface {
	Flush() error
}

// Writer appends XML to a single output document.
//
// It is safe for concurrent use. Every call performs exactly one write to
// the sink while holding the writer's lock, so output from concurrent
// callers never interleaves inside an element. Once the sink fails, the
// error is kept and returned by all later calls.
type Writer struct {
	mu   sync.Mutex
	out  io.Writer
	open []string
	err  error
}

// NewWriter creates a Writer over out. If out has a Flush() error method it
// is flushed after every write.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteNode encodes n and writes it as one unit.
func (w *Writer) WriteNode(n *xmlcodec.Node) error {
	b, err := xmlcodec.Marshal(n)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(b)
}

// WriteString writes s verbatim.
func (w *Writer) WriteString(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write([]byte(s))
}

// Open writes the start tag of a container and pushes it on the open stack.
func (w *Writer) Open(tag string, attrs ...xmlcodec.Attr) error {
	if tag == "" {
		return fmt.Errorf("%w: empty container name", xmlcodec.ErrInvalidNode)
	}

	var buf bytes.Buffer
	buf.WriteByte('<')
	buf.WriteString(tag)
	for _, a := range attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		if err := xml.EscapeText(&buf, []byte(a.Value)); err != nil {
			return err
		}
		buf.WriteByte('"')
	}
	buf.WriteByte('>')

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.write(buf.Bytes()); err != nil {
		return err
	}
	w.open = append(w.open, tag)
	return nil
}

// Close writes the end tag of the innermost open container. A non-empty tag
// must name that container.
func (w *Writer) Close(tag string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.open) == 0 {
		return ErrNothingOpen
	}
	last := w.open[len(w.open)-1]
	if tag != "" && tag != last {
		return fmt.Errorf("%w: closing <%s>, innermost is <%s>", ErrContainerMismatch, tag, last)
	}

	w.open = w.open[:len(w.open)-1]
	return w.write([]byte("</" + last + ">"))
}

// OpenTags returns the currently open containers, outermost first.
func (w *Writer) OpenTags() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.open...)
}

// Err returns the sticky sink error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// write must be called with w.mu held.
func (w *Writer) write(b []byte) error {
	if w.err != nil {
		return w.err
	}
	if _, err := w.out.Write(b); err != nil {
		w.err = fmt.Errorf("%w: %w", ErrWriteFailure, err)
		return w.err
	}
	if f, ok := w.out.(flusher); ok {
		if err := f.Flush(); err != nil {
			w.err = fmt.Errorf("%w: %w", ErrWriteFailure, err)
			return w.err
		}
	}
	return nil
}
