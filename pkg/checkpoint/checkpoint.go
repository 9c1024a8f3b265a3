package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNoDirectory is returned when the host did not provide a checkpoint
// directory.
var ErrNoDirectory = errors.New("checkpoint: no checkpoint directory")

// Checkpoint is the resume point of one input instance.
type Checkpoint struct {
	// Stanza is the instance name the checkpoint belongs to.
	Stanza string `json:"stanza"`

	// Position is an input-defined cursor, such as a file offset or the
	// last seen identifier.
	Position string `json:"position,omitempty"`

	// Count is the number of events written so far.
	Count int64 `json:"count"`

	// Data holds any extra input-defined state.
	Data json.RawMessage `json:"data,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty returns true if nothing was ever saved for the stanza.
func (c Checkpoint) IsEmpty() bool {
	return c.UpdatedAt.IsZero()
}

// Advance moves the checkpoint forward after events were written.
func (c *Checkpoint) Advance(position string, written int64) {
	c.Position = position
	c.Count += written
	c.UpdatedAt = time.Now()
}

// Store persists checkpoints across runs.
type Store interface {
	// Load returns the saved checkpoint, or an empty one if none exists.
	Load(ctx context.Context, stanza string) (Checkpoint, error)

	// Save persists c atomically.
	Save(ctx context.Context, c Checkpoint) error

	// Delete removes the checkpoint. Deleting a missing one is not an error.
	Delete(ctx context.Context, stanza string) error
}
