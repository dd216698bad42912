package feed

import (
	"context"
	"fmt"
	"os"

	"adsb_tracker/internal/dump1090"
)

// FileSource reads snapshots from dump1090's aircraft.json on disk.
// The file is rewritten in place by dump1090 every second or so; each Poll
// reads whatever is current.
type FileSource struct {
	Path string
}

// NewFileSource creates a source reading the given aircraft.json path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Poll reads and decodes the snapshot file. A missing file is ErrNotReady:
// dump1090 may simply not have started yet.
func (s *FileSource) Poll(ctx context.Context) (*dump1090.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotReady
		}
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	snap, err := dump1090.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return snap, nil
}

// Close is a no-op for file sources.
func (s *FileSource) Close() error {
	return nil
}
