package adapter_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesdk/execd/pkg/adapter"
)

func TestManifestValidator_RejectsArgsViolatingSchema(t *testing.T) {
	manifests := []adapter.ToolManifest{
		{
			Name:       "workspace.write",
			Permission: "write",
			ArgsSchema: json.RawMessage(`{
				"type": "object",
				"required": ["path", "content"],
				"properties": {"path": {"type": "string"}, "content": {"type": "string"}}
			}`),
		},
	}
	v, err := adapter.NewManifestValidator(manifests)
	require.NoError(t, err)

	require.NoError(t, v.Validate("workspace.write", map[string]any{"path": "a.txt", "content": "hi"}))
	require.Error(t, v.Validate("workspace.write", map[string]any{"path": "a.txt"}))
}

func TestManifestValidator_RejectsUncompilableSchema(t *testing.T) {
	manifests := []adapter.ToolManifest{
		{
			Name:       "workspace.read",
			Permission: "read_only",
			ArgsSchema: json.RawMessage(`{"properties": "not-an-object"}`),
		},
	}
	_, err := adapter.NewManifestValidator(manifests)
	require.Error(t, err)
}

func TestManifestValidator_UnschemaedToolAlwaysValidates(t *testing.T) {
	v, err := adapter.NewManifestValidator([]adapter.ToolManifest{{Name: "noop"}})
	require.NoError(t, err)
	require.NoError(t, v.Validate("noop", map[string]any{"anything": true}))
	require.NoError(t, v.Validate("unregistered-tool", map[string]any{"x": 1}))
}
