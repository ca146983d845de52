// Package adapter defines the normalized contract every AI-runtime backend
// (Claude-style, Codex-style, or otherwise) must implement so the executor
// engine can drive it without knowing which backend it is talking to
// (spec §4.4).
//
// Grounded on the teacher's pkg/testharness mock adapter (HandleToolCall's
// request/decision/response shape) and on goa-ai's runtime/agent/runtime
// package (RunInput/RunOutput-style option structs, doc-comment density),
// generalized from a single-call mock into a long-lived session/task
// interface over a streamed, adapter-agnostic event sequence.
package adapter

import (
	"context"

	"github.com/codesdk/execd/pkg/event"
)

// Capabilities describes what a backend supports, reported once at startup
// and surfaced verbatim on GET /capabilities (spec §4.4, §6.1) so a client
// can negotiate against it instead of guessing.
type Capabilities struct {
	Name              string   `json:"name"`
	Models            []string `json:"models"`
	SupportsResume    bool     `json:"supports_resume"`
	SupportsStreaming bool     `json:"supports_streaming"`
	// ToolExecutionMode is "runtime_internal" | "external_mcp" | "hybrid".
	ToolExecutionMode string `json:"tool_execution_model"`

	SupportsToolCalls         bool `json:"supports_tool_calls"`
	SupportsParallelToolCalls bool `json:"supports_parallel_tool_calls"`
	SupportsStop              bool `json:"supports_stop"`
	SupportsArtifacts         bool `json:"supports_artifacts"`
	SupportsUsageReporting    bool `json:"supports_usage_reporting"`

	// AuthModel names how the backend authenticates (e.g. "oauth",
	// "api_key", "none").
	AuthModel string `json:"auth_model"`
	// PermissionModel names how the backend understands tool permissions
	// (e.g. "engine_policy" for adapters that defer entirely to the
	// engine's policy.Decide, or a backend-native scheme's name).
	PermissionModel string `json:"permission_model"`
	// CancellationModel is "best_effort" | "guaranteed" | "unknown".
	CancellationModel string `json:"cancellation_model"`
	// RecommendedIsolation names the filesystem isolation level/mode this
	// backend expects sessions to run under (spec §6.5).
	RecommendedIsolation string `json:"recommended_isolation,omitempty"`
}

// AuthStatus reports whether the adapter currently has usable credentials
// for the given runtime namespace (spec §4.4).
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Detail        string `json:"detail,omitempty"`
}

// CreateSessionRequest carries the inputs needed to open a new runtime-side
// conversation, when the backend supports persistent sessions.
type CreateSessionRequest struct {
	Namespace string
	Model     string
	Env       map[string]string
}

// StartTaskRequest carries everything needed to start one task turn inside
// a session (spec §4.5).
type StartTaskRequest struct {
	SessionID        string
	TaskID           string
	RuntimeSessionID string // empty if the adapter has no resumable session
	Prompt           string
	Model            string
	Env              map[string]string
	WorkDir          string
}

// ToolResult is handed back to the adapter once a tool call completes,
// whatever executed it (spec §4.5.5/§4.5.6).
type ToolResult struct {
	ToolCallID string
	IsError    bool
	Output     any
}

// ToolDenial is handed back to the adapter when policy or a human denies a
// pending tool call (spec §4.5.4).
type ToolDenial struct {
	ToolCallID string
	Reason     string
}

// Adapter is the contract an AI-runtime backend implements. All methods
// must be safe to call from the executor's per-session task loop;
// long-running work happens behind TaskHandle, not here.
type Adapter interface {
	Capabilities() Capabilities
	AuthStatus(ctx context.Context, namespace string) (AuthStatus, error)

	// CreateSession opens a runtime-side session, if the backend supports
	// one. Adapters without session support return ("", nil).
	CreateSession(ctx context.Context, req CreateSessionRequest) (runtimeSessionID string, err error)

	// ResumeSession validates that a previously created runtime session id
	// is still usable. Adapters without resume support return an error
	// satisfying errors.Is(err, ErrResumeUnsupported).
	ResumeSession(ctx context.Context, runtimeSessionID string) error

	// StartTask begins one task turn and returns a handle streaming its
	// normalized event sequence. The sequence is finite. The engine appends
	// the task's terminal event (task.completed/failed/stopped) itself when
	// the sequence ends; a terminal event the adapter does send is recorded
	// in its place, except after a stop, when the engine records
	// task.stopped instead.
	StartTask(ctx context.Context, req StartTaskRequest) (TaskHandle, error)
}

// TaskHandle represents one in-flight task turn.
type TaskHandle interface {
	// Events yields the task's normalized event sequence in order. The
	// channel closes when the sequence ends.
	Events() <-chan event.Event

	// SendToolResult delivers a completed tool's result back to the
	// backend so it can continue reasoning (external_mcp/hybrid models).
	SendToolResult(ctx context.Context, result ToolResult) error

	// SendToolDenied delivers a policy/human denial back to the backend.
	SendToolDenied(ctx context.Context, denial ToolDenial) error

	// Stop requests best-effort cancellation. The handle ends its event
	// sequence once cancellation settles; the engine, not the handle,
	// appends task.stopped.
	Stop(ctx context.Context, reason string) error
}
