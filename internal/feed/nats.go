package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"adsb_tracker/internal/dump1090"
)

// DefaultSubject is the NATS subject snapshots are published on.
const DefaultSubject = "adsb.snapshot"

// NATSSource receives snapshots pushed over NATS instead of reading a file.
// The subscription retains only the most recent snapshot; Poll hands it out
// once and reports ErrNotReady until a newer one arrives. Intermediate
// snapshots that arrive faster than the polling interval are dropped, which
// matches the file source's read-whatever-is-current behaviour.
type NATSSource struct {
	conn *nats.Conn
	sub  *nats.Subscription

	mu      sync.Mutex
	latest  *dump1090.Snapshot
	pending bool
}

// NewNATSSource connects to the NATS server and subscribes to the snapshot
// subject. An empty subject uses DefaultSubject.
func NewNATSSource(url, subject string) (*NATSSource, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	s := &NATSSource{conn: conn}

	sub, err := conn.Subscribe(subject, s.handle)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.sub = sub

	return s, nil
}

func (s *NATSSource) handle(msg *nats.Msg) {
	snap, err := dump1090.Decode(msg.Data)
	if err != nil {
		// Malformed snapshots are dropped; the next publish supersedes them.
		return
	}

	s.mu.Lock()
	s.latest = snap
	s.pending = true
	s.mu.Unlock()
}

// Poll returns the most recent unseen snapshot.
func (s *NATSSource) Poll(ctx context.Context) (*dump1090.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return nil, ErrNotReady
	}
	s.pending = false
	return s.latest, nil
}

// Close drains the subscription and closes the connection.
func (s *NATSSource) Close() error {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	s.conn.Close()
	return nil
}
