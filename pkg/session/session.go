// Package session tracks session metadata — runtime, isolation settings,
// permission mode — that the HTTP layer needs but the event-sourced model
// itself does not (the event log only ever sees a session_id).
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/codesdk/execd/pkg/policy"
)

// Isolation mirrors spec §6.5's isolation knobs for a session's runtime
// environment.
type Isolation struct {
	Level string // shared | namespaced | ephemeral
	Mode  string // in_process | subprocess | server_side
}

// Record is one session's metadata, as returned by the HTTP surface.
type Record struct {
	ID                  string
	Runtime             string
	RuntimeSessionID    string
	CredentialNamespace string
	Isolation           Isolation
	CWD                 string
	Env                 map[string]string
	Model               string
	PermissionMode      policy.Mode
	CreatedAt           time.Time
}

// Registry is a mutex-protected in-process session directory, the
// session-scoped analogue of the teacher's RunState map-of-calls.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*Record
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Record)}
}

// Put inserts or replaces a session record.
func (r *Registry) Put(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
}

// Get returns the record for id, or false if unknown.
func (r *Registry) Get(id string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	return rec, ok
}

// List returns up to limit records with ID greater than after, ordered by
// ID. Session IDs are UUIDv7 (see httpapi's handleCreateSession), so their
// lexical order is their creation order and byte-wise string comparison is
// a sound cursor: a session created after the cursor always sorts after it,
// unlike the UUIDv4 this package used to assume. limit <= 0 means
// unlimited.
func (r *Registry) List(after string, limit int) []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0, len(r.byID))
	for _, rec := range r.byID {
		if after != "" && rec.ID <= after {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
