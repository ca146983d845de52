package supportbundle_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesdk/execd/pkg/artifact"
	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/eventstore"
	"github.com/codesdk/execd/pkg/supportbundle"
)

func untar(t *testing.T, gz []byte) map[string][]byte {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(gz))
	require.NoError(t, err)
	tr := tar.NewReader(zr)

	out := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		out[hdr.Name] = body
	}
	return out
}

func TestWrite_EventsAndArtifacts(t *testing.T) {
	store := eventstore.NewMemoryStore()
	artifacts := artifact.NewMemoryStore()
	ctx := context.Background()

	ref, err := artifacts.Put(ctx, []byte("big result"), artifact.PutOptions{ContentType: "text/plain"})
	require.NoError(t, err)

	_, err = store.Append(ctx, "sess-1", event.NewEventFields{
		Type:  event.TypeToolCallCompleted,
		Trace: event.Trace{SessionID: "sess-1", TaskID: "task-1"},
		Payload: event.ToolCallCompletedPayload{
			ToolCallID: "call-1",
			ResultRef:  &event.ArtifactRef{ArtifactID: ref.ArtifactID, ContentType: ref.ContentType, SizeBytes: ref.SizeBytes},
		},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, supportbundle.Write(ctx, &buf, store, artifacts, supportbundle.Options{SessionID: "sess-1"}))

	files := untar(t, buf.Bytes())
	require.Contains(t, files, "events.jsonl")
	require.Contains(t, string(files["events.jsonl"]), "call-1")
	require.Contains(t, files, "artifacts/"+ref.ArtifactID+".bin")
	require.Equal(t, "big result", string(files["artifacts/"+ref.ArtifactID+".bin"]))
	require.NotContains(t, files, "bindings.json")
}

func TestWrite_IncludesRedactedBindingsForServer(t *testing.T) {
	t.Setenv("EXECD_SECRET_BINDINGS", `[{"inject_as":"API_KEY","secret_ref":"API_KEY_SECRET"}]`)

	store := eventstore.NewMemoryStore()
	artifacts := artifact.NewMemoryStore()
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, supportbundle.Write(ctx, &buf, store, artifacts, supportbundle.Options{
		SessionID:  "sess-2",
		ServerName: "claude-code",
	}))

	files := untar(t, buf.Bytes())
	require.Contains(t, files, "bindings.json")
	require.Contains(t, string(files["bindings.json"]), "API_KEY")
	require.Contains(t, string(files["bindings.json"]), "inject_as")
}

func TestWrite_RedactsSecretLookingValuesInEvents(t *testing.T) {
	store := eventstore.NewMemoryStore()
	artifacts := artifact.NewMemoryStore()
	ctx := context.Background()

	_, err := store.Append(ctx, "sess-3", event.NewEventFields{
		Type:  event.TypeToolCallCompleted,
		Trace: event.Trace{SessionID: "sess-3", TaskID: "task-3"},
		Payload: event.ToolCallCompletedPayload{
			ToolCallID:    "call-3",
			ResultPreview: "token sk-abcdefghijklmnop leaked here",
		},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, supportbundle.Write(ctx, &buf, store, artifacts, supportbundle.Options{SessionID: "sess-3"}))

	files := untar(t, buf.Bytes())
	require.NotContains(t, string(files["events.jsonl"]), "sk-abcdefghijklmnop")
	require.Contains(t, string(files["events.jsonl"]), "[REDACTED]")
}
