// Package session assigns incoming observations to flight sessions.
//
// A flight session is a maximal run of observations for one aircraft with no
// gap of DefaultTimeout or more between consecutive readings. Splitting on
// gaps keeps trajectory rendering from drawing a line between the approach
// of one flight and the departure of the next.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"adsb_tracker/internal/storage"
)

// DefaultTimeout is the gap after which an aircraft's next observation opens
// a new session.
const DefaultTimeout = 30 * time.Minute

// Tracker decides which session an observation belongs to. It holds no state
// of its own: the store is the single source of truth, so assignment survives
// process restarts and replays deterministically.
type Tracker struct {
	store   storage.Store
	timeout time.Duration
}

// NewTracker creates a tracker using the given store. A zero timeout uses
// DefaultTimeout.
func NewTracker(store storage.Store, timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{store: store, timeout: timeout}
}

// Assign returns the session id for an observation of icao captured at the
// given time. The aircraft's most recent stored observation is authoritative:
// latest by timestamp, ties broken by insertion order. If none exists, or the
// gap since it is at least the timeout, a new session id is generated.
//
// An out-of-order arrival (at earlier than the last stored timestamp) yields
// a negative gap and therefore joins the current session.
func (t *Tracker) Assign(ctx context.Context, icao string, at time.Time) (string, error) {
	last, err := t.store.LatestForIcao(ctx, icao)
	if err != nil {
		return "", fmt.Errorf("latest observation for %s: %w", icao, err)
	}

	if last != nil && at.Sub(last.Timestamp) < t.timeout {
		return last.SessionID, nil
	}

	return uuid.NewString(), nil
}
