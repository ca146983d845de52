// Package eventstore implements the append-only, per-session event log
// specified in spec §4.1: append assigns seq, persists, and broadcasts to
// live subscribers atomically from a subscriber's point of view; list and
// subscribe both honor the monotonic-seq and terminal invariants of §3.
package eventstore

import (
	"context"
	"errors"

	"github.com/codesdk/execd/pkg/event"
)

// ErrSessionMismatch is returned by Append when the supplied trace's
// session_id does not equal the session being appended to (§3 Invariant:
// trace consistency).
var ErrSessionMismatch = errors.New("eventstore: trace.session_id does not match target session")

// Store is the append-only per-session event log contract (spec §4.1).
type Store interface {
	// Append assigns the next seq for session_id, fills schema_version and
	// time (if zero), validates trace.session_id, persists, and broadcasts
	// to live subscribers before returning.
	Append(ctx context.Context, sessionID string, fields event.NewEventFields) (event.Event, error)

	// List returns, in order, all events for sessionID with seq > afterSeq,
	// up to limit (0 means unlimited).
	List(ctx context.Context, sessionID string, afterSeq int64, limit int) ([]event.Event, error)

	// Subscribe returns a channel delivering every historical event with
	// seq > fromSeq, followed by live events in order, until ctx is
	// cancelled or the backend fails to read the log. The channel is
	// closed when the subscription ends; callers must drain it.
	Subscribe(ctx context.Context, sessionID string, fromSeq int64) (<-chan event.Event, error)

	// Close releases any resources held by the store (e.g. a DB handle).
	Close() error
}
