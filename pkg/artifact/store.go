// Package artifact implements the content-addressed blob store specified in
// spec §4.2: immutable artifacts, optional max-size enforcement, an
// optional redaction transform applied before persistence, and all-or-
// nothing reads.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/codesdk/execd/pkg/canonical"
)

// ErrTooLarge is returned by Put when bytes exceeds the configured maxBytes.
var ErrTooLarge = errors.New("artifact: payload exceeds maximum size")

// Ref is an artifact reference without bytes (spec §3 Artifact).
type Ref struct {
	ArtifactID  string `json:"artifact_id"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentHash string `json:"content_hash"`
	Name        string `json:"name,omitempty"`
}

// Record is a full artifact: its reference plus bytes.
type Record struct {
	Ref
	CreatedAt time.Time
	Bytes     []byte
}

// PutOptions configures one Put call.
type PutOptions struct {
	ContentType string
	Name        string
	MaxBytes    int64 // 0 means unbounded

	// Redact, if set, is applied to bytes before they are persisted. Used
	// only by the support-bundle pipeline (spec §9); the primary artifact
	// store itself is never redacted on write.
	Redact func([]byte) []byte
}

// Store is the content-addressed, immutable blob store (spec §4.2).
type Store interface {
	Put(ctx context.Context, data []byte, opts PutOptions) (Ref, error)
	Get(ctx context.Context, artifactID string) (*Record, error)
}

// FileStore persists artifacts under <dataDir>/artifacts/{data,meta} as
// specified in §6.6.
type FileStore struct {
	dataDir string
}

// NewFileStore creates (if needed) the artifact tree rooted at dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	for _, sub := range []string{"data", "meta"} {
		if err := os.MkdirAll(filepath.Join(dataDir, "artifacts", sub), 0o755); err != nil {
			return nil, fmt.Errorf("artifact: create %s dir: %w", sub, err)
		}
	}
	return &FileStore{dataDir: dataDir}, nil
}

func (f *FileStore) dataPath(id string) string { return filepath.Join(f.dataDir, "artifacts", "data", id+".bin") }
func (f *FileStore) metaPath(id string) string { return filepath.Join(f.dataDir, "artifacts", "meta", id+".json") }

// Put implements Store.
func (f *FileStore) Put(ctx context.Context, data []byte, opts PutOptions) (Ref, error) {
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

	if err := os.WriteFile(f.dataPath(id), data, 0o644); err != nil {
		return Ref{}, fmt.Errorf("artifact: write blob: %w", err)
	}

	meta := recordMeta{Ref: ref, CreatedAt: time.Now().UTC()}
	metaBytes, err := marshalMeta(meta)
	if err != nil {
		return Ref{}, err
	}
	if err := os.WriteFile(f.metaPath(id), metaBytes, 0o644); err != nil {
		return Ref{}, fmt.Errorf("artifact: write meta: %w", err)
	}

	return ref, nil
}

// Get implements Store. A missing artifact returns (nil, nil) — absent, not
// an error — per spec §4.2: either all bytes are returned or the record is
// reported absent.
func (f *FileStore) Get(ctx context.Context, artifactID string) (*Record, error) {
	metaBytes, err := os.ReadFile(f.metaPath(artifactID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("artifact: read meta: %w", err)
	}
	meta, err := unmarshalMeta(metaBytes)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.dataPath(artifactID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("artifact: read blob: %w", err)
	}

	return &Record{Ref: meta.Ref, CreatedAt: meta.CreatedAt, Bytes: data}, nil
}
