package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSource_Poll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aircraft.json")
	src := NewFileSource(path)
	ctx := context.Background()

	t.Run("missing file is not ready", func(t *testing.T) {
		_, err := src.Poll(ctx)
		if !errors.Is(err, ErrNotReady) {
			t.Fatalf("Poll = %v, want ErrNotReady", err)
		}
	})

	t.Run("valid snapshot", func(t *testing.T) {
		content := `{"now": 1700000000, "messages": 42, "aircraft": [{"hex": "abc123"}]}`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		snap, err := src.Poll(ctx)
		if err != nil {
			t.Fatalf("Poll returned error: %v", err)
		}
		if snap.Messages != 42 {
			t.Errorf("Messages = %d, want 42", snap.Messages)
		}
		if len(snap.Aircraft) != 1 || snap.Aircraft[0].Hex != "abc123" {
			t.Errorf("unexpected aircraft list: %+v", snap.Aircraft)
		}
	})

	t.Run("malformed snapshot is an error, not ErrNotReady", func(t *testing.T) {
		if err := os.WriteFile(path, []byte(`{"aircraft":`), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := src.Poll(ctx)
		if err == nil {
			t.Fatal("expected decode error")
		}
		if errors.Is(err, ErrNotReady) {
			t.Fatal("decode failure must not be reported as ErrNotReady")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := src.Poll(cancelled); !errors.Is(err, context.Canceled) {
			t.Fatalf("Poll = %v, want context.Canceled", err)
		}
	})
}
