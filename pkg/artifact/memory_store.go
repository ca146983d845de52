package artifact

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codesdk/execd/pkg/canonical"
)

// MemoryStore is an in-process Store used by tests and the testharness mock
// adapter scenarios (spec §8 E7).
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore constructs an empty in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Put implements Store.
func (m *MemoryStore) Put(ctx context.Context, data []byte, opts PutOptions) (Ref, error) {
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return Ref{}, ErrTooLarge
	}
	if opts.Redact != nil {
		data = opts.Redact(data)
	}

	id := uuid.NewString()
	ref := Ref{
		ArtifactID:  id,
		ContentType: opts.ContentType,
		SizeBytes:   int64(len(data)),
		ContentHash: canonical.HashBytes(data),
		Name:        opts.Name,
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	m.mu.Lock()
	m.records[id] = &Record{Ref: ref, CreatedAt: time.Now().UTC(), Bytes: stored}
	m.mu.Unlock()

	return ref, nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, artifactID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[artifactID]
	if !ok {
		return nil, nil
	}
	out := *rec
	out.Bytes = append([]byte(nil), rec.Bytes...)
	return &out, nil
}
