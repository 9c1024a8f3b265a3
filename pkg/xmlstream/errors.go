package xmlstream

import "errors"

var (
	// ErrReadTimeout is returned when a complete document does not arrive
	// before the read deadline.
	ErrReadTimeout = errors.New("xmlstream: read timeout")

	// ErrReaderBroken is returned by reads after a timed out read.
	ErrReaderBroken = errors.New("xmlstream: reader unusable after timeout")

	// ErrUnexpectedRoot is returned when the document's root element is not
	// the one requested.
	ErrUnexpectedRoot = errors.New("xmlstream: unexpected root element")

	// ErrWriteFailure wraps any error returned by the output sink.
	ErrWriteFailure = errors.New("xmlstream: write failure")

	// ErrNothingOpen is returned by Close when no container is open.
	ErrNothingOpen = errors.New("xmlstream: nothing to close")

	// ErrContainerMismatch is returned by Close when the named tag is not
	// the innermost open container.
	ErrContainerMismatch = errors.New("xmlstream: container mismatch")
)
