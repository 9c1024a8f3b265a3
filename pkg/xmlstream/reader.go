package xmlstream

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/modinput/pkg/xmlcodec"
)

// DefaultReadTimeout matches the time the host waits for a script to accept
// its configuration document.
const DefaultReadTimeout = 30500 * time.Millisecond

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithTimeout sets how long ReadDocument waits for a complete document.
// Non-positive values keep the default.
func WithTimeout(d time.Duration) ReaderOption {
	return func(r *Reader) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Reader frames top-level XML documents out of a byte stream.
//
// Bytes are consumed as they arrive, so a document split across many reads
// is assembled transparently. The document is complete when the end tag
// matching its root element has been read; nested elements and character
// data containing the root's name do not end it early.
type Reader struct {
	mu      sync.Mutex
	dec     *xml.Decoder
	timeout time.Duration
	broken  bool
}

// NewReader creates a Reader over in.
func NewReader(in io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		dec:     xml.NewDecoder(in),
		timeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeout returns the configured read deadline.
func (r *Reader) Timeout() time.Duration {
	return r.timeout
}

type readResult struct {
	node *xmlcodec.Node
	err  error
}

// ReadDocument blocks until a complete document rooted at tag has arrived
// and returns it decoded.
//
// If the document does not complete within the reader's timeout, or ctx is
// done first, it returns an error wrapping ErrReadTimeout (or the context's
// error) and no document. The underlying read cannot be interrupted, so the
// Reader refuses further reads after that.
func (r *Reader) ReadDocument(ctx context.Context, tag string) (*xmlcodec.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.broken {
		return nil, ErrReaderBroken
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan readResult, 1)
	go func() {
		n, err := r.readRoot(tag)
		done <- readResult{node: n, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return res.node, nil
	case <-ctx.Done():
		r.broken = true
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: receiving <%s> after %s", ErrReadTimeout, tag, r.timeout)
		}
		return nil, ctx.Err()
	}
}

// readRoot skips the prolog and decodes the first element, which must be tag.
func (r *Reader) readRoot(tag string) (*xmlcodec.Node, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("%w: waiting for <%s>: %w", xmlcodec.ErrMalformedDocument, tag, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != tag {
				return nil, fmt.Errorf("%w: got <%s>, want <%s>", ErrUnexpectedRoot, t.Name.Local, tag)
			}
			return xmlcodec.DecodeElement(r.dec, t)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, fmt.Errorf("%w: text before <%s>", xmlcodec.ErrMalformedDocument, tag)
			}
		}
	}
}
