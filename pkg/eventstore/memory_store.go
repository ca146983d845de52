package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/codesdk/execd/pkg/event"
)

// MemoryStore is an in-process Store backend, used by tests and by
// pkg/testharness; cmd/execd requires --data-dir and always uses
// SQLiteStore. It holds every session's log in memory and never persists
// across restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionLog
}

type sessionLog struct {
	mu     sync.Mutex
	events []event.Event
	notify chan struct{}
}

// NewMemoryStore constructs an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*sessionLog)}
}

func (m *MemoryStore) logFor(sessionID string) *sessionLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.sessions[sessionID]
	if !ok {
		log = &sessionLog{notify: make(chan struct{})}
		m.sessions[sessionID] = log
	}
	return log
}

// Append implements Store.
func (m *MemoryStore) Append(ctx context.Context, sessionID string, fields event.NewEventFields) (event.Event, error) {
	if fields.Trace.SessionID != "" && fields.Trace.SessionID != sessionID {
		return event.Event{}, ErrSessionMismatch
	}
	fields.Trace.SessionID = sessionID

	log := m.logFor(sessionID)
	log.mu.Lock()
	defer log.mu.Unlock()

	ts := fields.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	evt := event.Event{
		SchemaVersion: event.SchemaVersion,
		Seq:           int64(len(log.events)) + 1,
		Time:          ts,
		Type:          fields.Type,
		Trace:         fields.Trace,
		Runtime:       fields.Runtime,
		Payload:       fields.Payload,
	}

	log.events = append(log.events, evt)
	close(log.notify)
	log.notify = make(chan struct{})

	return evt, nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, sessionID string, afterSeq int64, limit int) ([]event.Event, error) {
	log := m.logFor(sessionID)
	log.mu.Lock()
	defer log.mu.Unlock()

	out := make([]event.Event, 0)
	for _, evt := range log.events {
		if evt.Seq > afterSeq {
			out = append(out, evt)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Subscribe implements Store. The returned channel is closed when ctx is
// done; callers MUST drain or abandon it promptly.
func (m *MemoryStore) Subscribe(ctx context.Context, sessionID string, fromSeq int64) (<-chan event.Event, error) {
	log := m.logFor(sessionID)
	out := make(chan event.Event, 64)

	go func() {
		defer close(out)
		pos := fromSeq

		for {
			log.mu.Lock()
			pending := make([]event.Event, 0)
			for _, evt := range log.events {
				if evt.Seq > pos {
					pending = append(pending, evt)
				}
			}
			notifyCh := log.notify
			log.mu.Unlock()

			for _, evt := range pending {
				select {
				case out <- evt:
					pos = evt.Seq
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-notifyCh:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close implements Store. MemoryStore holds no external resources.
func (m *MemoryStore) Close() error { return nil }
