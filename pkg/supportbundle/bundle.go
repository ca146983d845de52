// Package supportbundle packages a session's event history, referenced
// artifacts, and secret-binding metadata into a redacted gzip tarball
// (spec §6.1 GET /sessions/{id}/support-bundle, EXPANSION 4.7).
//
// Built on stdlib archive/tar + compress/gzip: a plain gzip tarball is
// exactly what §6.1 asks for, and no pack repo imports a third-party
// archiving library for anything richer than that (see DESIGN.md).
package supportbundle

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/codesdk/execd/pkg/artifact"
	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/eventstore"
	"github.com/codesdk/execd/pkg/secret"
)

// Options configures one bundle Write call.
type Options struct {
	SessionID  string
	TaskID     string // optional: restrict to one task's events
	ServerName string // session's runtime/adapter name, for secret-binding lookup
	Redactor   *secret.Redactor
}

// Write streams a gzip tar of events.jsonl plus one artifacts/<id>.bin per
// artifact referenced by a tool.call.completed event, to w.
func Write(ctx context.Context, w io.Writer, events eventstore.Store, artifacts artifact.Store, opts Options) error {
	redactor := opts.Redactor
	if redactor == nil {
		redactor = secret.NewRedactor(nil)
	}

	gz := gzip.NewWriter(w)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	all, err := events.List(ctx, opts.SessionID, 0, 0)
	if err != nil {
		return fmt.Errorf("supportbundle: list events: %w", err)
	}

	var jsonl []byte
	var artifactRefs []event.ArtifactRef
	for _, evt := range all {
		if opts.TaskID != "" && evt.Trace.TaskID != opts.TaskID {
			continue
		}
		line, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		line = redactor.RedactBytes(line)
		jsonl = append(jsonl, line...)
		jsonl = append(jsonl, '\n')

		if evt.Type == event.TypeToolCallCompleted {
			if ref := extractResultRef(evt.Payload); ref != nil {
				artifactRefs = append(artifactRefs, *ref)
			}
		}
	}

	if err := writeTarEntry(tw, "events.jsonl", jsonl); err != nil {
		return err
	}

	for _, ref := range artifactRefs {
		record, err := artifacts.Get(ctx, ref.ArtifactID)
		if err != nil || record == nil {
			continue
		}
		name := fmt.Sprintf("artifacts/%s.bin", ref.ArtifactID)
		if err := writeTarEntry(tw, name, redactor.RedactBytes(record.Bytes)); err != nil {
			return err
		}
	}

	if opts.ServerName != "" {
		bindingsJSON, err := redactedBindings(opts.ServerName, redactor)
		if err != nil {
			return fmt.Errorf("supportbundle: load secret bindings: %w", err)
		}
		if bindingsJSON != nil {
			if err := writeTarEntry(tw, "bindings.json", bindingsJSON); err != nil {
				return err
			}
		}
	}

	return nil
}

// redactedBindings loads the session's runtime's secret bindings (spec
// EXPANSION 4.7) and marshals their metadata — inject_as, secret_ref,
// source — with the redactor applied. Binding.Value itself is never part
// of this metadata; the redactor guards against a secret_ref or inject_as
// name that happens to embed recognizable secret material.
func redactedBindings(serverName string, redactor *secret.Redactor) ([]byte, error) {
	bindings, err := secret.LoadBindingsFromEnv(serverName)
	if err != nil {
		return nil, err
	}
	if len(bindings) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(bindings)
	if err != nil {
		return nil, err
	}
	return redactor.RedactBytes(raw), nil
}

// extractResultRef pulls result_ref out of a tool.call.completed payload
// regardless of whether the store handed it back as the typed
// event.ToolCallCompletedPayload (MemoryStore, no serialization round
// trip) or a generic map[string]any (SQLiteStore, decoded from JSON).
func extractResultRef(payload any) *event.ArtifactRef {
	if completed, ok := payload.(event.ToolCallCompletedPayload); ok {
		return completed.ResultRef
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var decoded struct {
		ResultRef *event.ArtifactRef `json:"result_ref"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	return decoded.ResultRef
}

func writeTarEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: time.Now().UTC(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("supportbundle: write header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("supportbundle: write body %s: %w", name, err)
	}
	return nil
}
