package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const fileSuffix = ".json"

// FileStore implements Store with one JSON file per stanza under dir,
// normally the checkpoint_dir sent by the host.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrNoDirectory
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file used for stanza.
//
// Stanza names contain characters such as "://" that are not safe in file
// names, so the name is reduced to a safe prefix plus a hash of the full
// name.
func (s *FileStore) Path(stanza string) string {
	sum := sha256.Sum256([]byte(stanza))
	return filepath.Join(s.dir, sanitize(stanza)+"-"+hex.EncodeToString(sum[:6])+fileSuffix)
}

// Load retrieves the saved checkpoint for stanza.
// Returns an empty checkpoint and nil error if none exists.
func (s *FileStore) Load(ctx context.Context, stanza string) (Checkpoint, error) {
	data, err := os.ReadFile(s.Path(stanza))
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{Stanza: stanza}, nil
		}
		return Checkpoint{}, fmt.Errorf("checkpoint: load %q: %w", stanza, err)
	}

	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: decode %q: %w", stanza, err)
	}
	return c, nil
}

// Save persists c atomically: write to a temp file, then rename.
func (s *FileStore) Save(ctx context.Context, c Checkpoint) error {
	if c.Stanza == "" {
		return fmt.Errorf("checkpoint: stanza is required")
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encode %q: %w", c.Stanza, err)
	}

	path := s.Path(c.Stanza)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write %q: %w", c.Stanza, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: write %q: %w", c.Stanza, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Delete removes the checkpoint for stanza.
func (s *FileStore) Delete(ctx context.Context, stanza string) error {
	if err := os.Remove(s.Path(stanza)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: delete %q: %w", stanza, err)
	}
	return nil
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}

var _ Store = (*FileStore)(nil)
