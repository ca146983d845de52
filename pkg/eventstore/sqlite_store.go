package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/codesdk/execd/pkg/event"
)

// SQLiteStore is the durable Store backend (spec §4.1, §6.6): one row per
// event keyed by (session_id, seq) with a secondary index on task_id. It
// must survive process restart with every §3 invariant intact, and must
// serialize writes per session so sequence assignment and insertion form
// one logical transaction — enforced here with a per-session in-process
// mutex layered on top of SQLite's own single-writer semantics, since two
// goroutines racing a MAX(seq)+1 read against the same session would
// otherwise assign duplicate sequence numbers.
//
// Grounded on the teacher's cmd/sub/sqlite.go + pkg/ledger/ingest.go, which
// shell out to the sqlite3 CLI per write — workable for a one-shot importer,
// not for a long-lived daemon serializing concurrent per-session appends.
// Replaced with database/sql over modernc.org/sqlite (pulled from the
// haasonsaas-nexus example), a pure-Go driver that avoids a cgo build
// dependency for the daemon binary.
type SQLiteStore struct {
	db *sql.DB

	mu          sync.Mutex
	sessionLock map[string]*sync.Mutex
	notify      map[string]chan struct{}
}

// NewSQLiteStore opens (creating if necessary) a durable event log at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("eventstore: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("eventstore: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // writer serialization; SQLite has one writer anyway

	s := &SQLiteStore{
		db:          db,
		sessionLock: make(map[string]*sync.Mutex),
		notify:      make(map[string]chan struct{}),
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS events (
	insert_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT    NOT NULL,
	seq            INTEGER NOT NULL,
	time           TEXT    NOT NULL,
	schema_version INTEGER NOT NULL,
	type           TEXT    NOT NULL,
	task_id        TEXT    NOT NULL DEFAULT '',
	runtime_name   TEXT    NOT NULL DEFAULT '',
	trace_json     TEXT    NOT NULL,
	runtime_json   TEXT    NOT NULL,
	payload_json   TEXT    NOT NULL,
	UNIQUE(session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_events_session_task ON events(session_id, task_id);
`)
	if err != nil {
		return fmt.Errorf("eventstore: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sessionLock[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.sessionLock[sessionID] = l
	}
	return l
}

func (s *SQLiteStore) notifyChanFor(sessionID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.notify[sessionID]
	if !ok {
		ch = make(chan struct{})
		s.notify[sessionID] = ch
	}
	return ch
}

func (s *SQLiteStore) broadcast(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.notify[sessionID]
	if ok {
		close(ch)
	}
	s.notify[sessionID] = make(chan struct{})
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, fields event.NewEventFields) (event.Event, error) {
	if fields.Trace.SessionID != "" && fields.Trace.SessionID != sessionID {
		return event.Event{}, ErrSessionMismatch
	}
	fields.Trace.SessionID = sessionID

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ts := fields.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	traceJSON, err := json.Marshal(fields.Trace)
	if err != nil {
		return event.Event{}, fmt.Errorf("eventstore: marshal trace: %w", err)
	}
	runtimeJSON, err := json.Marshal(fields.Runtime)
	if err != nil {
		return event.Event{}, fmt.Errorf("eventstore: marshal runtime: %w", err)
	}
	payloadJSON, err := json.Marshal(fields.Payload)
	if err != nil {
		return event.Event{}, fmt.Errorf("eventstore: marshal payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("eventstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM events WHERE session_id = ?`, sessionID).Scan(&maxSeq); err != nil {
		return event.Event{}, fmt.Errorf("eventstore: read max seq: %w", err)
	}
	seq := maxSeq.Int64 + 1

	_, err = tx.ExecContext(ctx, `
INSERT INTO events (session_id, seq, time, schema_version, type, task_id, runtime_name, trace_json, runtime_json, payload_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, ts.Format(time.RFC3339Nano), event.SchemaVersion, string(fields.Type),
		fields.Trace.TaskID, fields.Runtime.Name, string(traceJSON), string(runtimeJSON), string(payloadJSON))
	if err != nil {
		return event.Event{}, fmt.Errorf("eventstore: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("eventstore: commit: %w", err)
	}

	evt := event.Event{
		SchemaVersion: event.SchemaVersion,
		Seq:           seq,
		Time:          ts,
		Type:          fields.Type,
		Trace:         fields.Trace,
		Runtime:       fields.Runtime,
		Payload:       fields.Payload,
	}
	s.broadcast(sessionID)
	return evt, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, sessionID string, afterSeq int64, limit int) ([]event.Event, error) {
	query := `SELECT seq, time, schema_version, type, trace_json, runtime_json, payload_json
	          FROM events WHERE session_id = ? AND seq > ? ORDER BY seq ASC`
	args := []any{sessionID, afterSeq}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list: %w", err)
	}
	defer rows.Close()

	out := make([]event.Event, 0)
	for rows.Next() {
		var (
			seq                                        int64
			ts                                          string
			schemaVersion                               int
			typ                                         string
			traceJSON, runtimeJSON, payloadJSON         string
		)
		if err := rows.Scan(&seq, &ts, &schemaVersion, &typ, &traceJSON, &runtimeJSON, &payloadJSON); err != nil {
			return nil, fmt.Errorf("eventstore: scan: %w", err)
		}
		evt, err := decodeRow(seq, ts, schemaVersion, typ, traceJSON, runtimeJSON, payloadJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func decodeRow(seq int64, ts string, schemaVersion int, typ, traceJSON, runtimeJSON, payloadJSON string) (event.Event, error) {
	parsedTime, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return event.Event{}, fmt.Errorf("eventstore: parse time: %w", err)
	}
	var trace event.Trace
	if err := json.Unmarshal([]byte(traceJSON), &trace); err != nil {
		return event.Event{}, fmt.Errorf("eventstore: unmarshal trace: %w", err)
	}
	var rt event.Runtime
	if err := json.Unmarshal([]byte(runtimeJSON), &rt); err != nil {
		return event.Event{}, fmt.Errorf("eventstore: unmarshal runtime: %w", err)
	}
	var payload any
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return event.Event{}, fmt.Errorf("eventstore: unmarshal payload: %w", err)
	}
	return event.Event{
		SchemaVersion: schemaVersion,
		Seq:           seq,
		Time:          parsedTime,
		Type:          event.Type(typ),
		Trace:         trace,
		Runtime:       rt,
		Payload:       payload,
	}, nil
}

// Subscribe implements Store.
func (s *SQLiteStore) Subscribe(ctx context.Context, sessionID string, fromSeq int64) (<-chan event.Event, error) {
	out := make(chan event.Event, 64)

	go func() {
		defer close(out)
		pos := fromSeq

		for {
			notifyCh := s.notifyChanFor(sessionID)

			batch, err := s.List(ctx, sessionID, pos, 0)
			if err != nil {
				return
			}
			for _, evt := range batch {
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

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
