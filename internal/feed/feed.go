// Package feed provides sources of dump1090 snapshot data for the ingest loop.
package feed

import (
	"context"
	"errors"

	"adsb_tracker/internal/dump1090"
)

// ErrNotReady indicates the backing source is absent or has produced nothing
// new yet. The caller should retry on the next polling interval; this is not
// a failure.
var ErrNotReady = errors.New("feed not ready")

// Source yields decoded aircraft snapshots.
type Source interface {
	// Poll returns the current snapshot. ErrNotReady means there is nothing
	// to process this cycle; any other error means this cycle's data could
	// not be read or decoded and should be skipped.
	Poll(ctx context.Context) (*dump1090.Snapshot, error)

	// Close releases any resources held by the source.
	Close() error
}
