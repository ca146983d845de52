// Package testharness provides a scriptable adapter.Adapter double plus a
// scenario runner, used both by pkg/executor's own tests (in spirit) and by
// test/contract's end-to-end scenarios (spec §8 E1-E7).
package testharness

import (
	"context"
	"errors"
	"sync"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/event"
)

// MockAdapter is a hand-rolled adapter.Adapter double driven by a fixed
// event script rather than a real backend. Grounded on the teacher's
// pkg/testharness mock adapter (HandleToolCall's request/decision/response
// shape is the ancestor of this script-then-replay design), generalized
// from a single synchronous call into the full streamed TaskHandle
// contract.
//
// A real external_mcp/hybrid backend only emits events past a
// tool.call.requested once it has the tool's result in hand, so the
// script is split on the first tool.call.requested it contains: leading
// events are emitted immediately, trailing events wait for every
// requested tool call to be resolved via SendToolResult/SendToolDenied.
type MockAdapter struct {
	caps            adapter.Capabilities
	leading         []event.Event
	trailing        []event.Event
	pendingToolCall bool
	startErr        error

	mu          sync.Mutex
	toolResults []adapter.ToolResult
	toolDenials []adapter.ToolDenial
	stopReasons []string
	resolved    chan struct{}
	resolveOnce sync.Once
}

// NewMockAdapter builds a mock reporting the given tool execution mode
// ("runtime_internal", "external_mcp", "hybrid") and replaying script once
// per task.
func NewMockAdapter(toolExecutionMode string, script []event.Event) *MockAdapter {
	m := &MockAdapter{
		caps: adapter.Capabilities{
			Name:                 "mock",
			ToolExecutionMode:    toolExecutionMode,
			SupportsStreaming:    true,
			SupportsToolCalls:    toolExecutionMode != "runtime_internal",
			SupportsStop:         true,
			SupportsArtifacts:    true,
			AuthModel:            "none",
			PermissionModel:      "engine_policy",
			CancellationModel:    "best_effort",
			RecommendedIsolation: "none",
		},
		resolved: make(chan struct{}),
	}
	for _, evt := range script {
		if evt.Type == event.TypeToolCallRequested {
			m.pendingToolCall = true
			m.leading = append(m.leading, evt)
			continue
		}
		if m.pendingToolCall {
			m.trailing = append(m.trailing, evt)
		} else {
			m.leading = append(m.leading, evt)
		}
	}
	return m
}

// WithStartError makes StartTask fail instead of replaying the script, for
// exercising the RUNTIME_ERROR path.
func (m *MockAdapter) WithStartError(err error) *MockAdapter {
	m.startErr = err
	return m
}

func (m *MockAdapter) Capabilities() adapter.Capabilities { return m.caps }

func (m *MockAdapter) AuthStatus(context.Context, string) (adapter.AuthStatus, error) {
	return adapter.AuthStatus{Authenticated: true}, nil
}

func (m *MockAdapter) CreateSession(context.Context, adapter.CreateSessionRequest) (string, error) {
	return "", nil
}

func (m *MockAdapter) ResumeSession(context.Context, string) error {
	return adapter.ErrResumeUnsupported
}

// StartTask replays the configured script, stamping each event's trace
// with the caller's session/task ids.
func (m *MockAdapter) StartTask(ctx context.Context, req adapter.StartTaskRequest) (adapter.TaskHandle, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	h := &mockHandle{adapter: m, events: make(chan event.Event, len(m.leading)+len(m.trailing)+1)}
	for _, evt := range m.leading {
		evt.Trace.SessionID = req.SessionID
		evt.Trace.TaskID = req.TaskID
		h.events <- evt
	}
	if !m.pendingToolCall {
		close(h.events)
		return h, nil
	}

	go func() {
		<-m.resolved
		for _, evt := range m.trailing {
			evt.Trace.SessionID = req.SessionID
			evt.Trace.TaskID = req.TaskID
			h.events <- evt
		}
		close(h.events)
	}()
	return h, nil
}

// ToolResults returns every result delivered via SendToolResult so far, in
// delivery order.
func (m *MockAdapter) ToolResults() []adapter.ToolResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adapter.ToolResult(nil), m.toolResults...)
}

// ToolDenials returns every denial delivered via SendToolDenied so far.
func (m *MockAdapter) ToolDenials() []adapter.ToolDenial {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adapter.ToolDenial(nil), m.toolDenials...)
}

// StopReasons returns every reason passed to Stop so far.
func (m *MockAdapter) StopReasons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.stopReasons...)
}

type mockHandle struct {
	adapter *MockAdapter
	events  chan event.Event
}

func (h *mockHandle) Events() <-chan event.Event { return h.events }

func (h *mockHandle) SendToolResult(ctx context.Context, result adapter.ToolResult) error {
	m := h.adapter
	m.mu.Lock()
	m.toolResults = append(m.toolResults, result)
	m.mu.Unlock()
	m.resolveOnce.Do(func() { close(m.resolved) })
	return nil
}

func (h *mockHandle) SendToolDenied(ctx context.Context, denial adapter.ToolDenial) error {
	m := h.adapter
	m.mu.Lock()
	m.toolDenials = append(m.toolDenials, denial)
	m.mu.Unlock()
	m.resolveOnce.Do(func() { close(m.resolved) })
	return nil
}

func (h *mockHandle) Stop(ctx context.Context, reason string) error {
	m := h.adapter
	m.mu.Lock()
	m.stopReasons = append(m.stopReasons, reason)
	m.mu.Unlock()
	return nil
}

// ErrMockStart is a canned RUNTIME_ERROR-path failure for WithStartError.
var ErrMockStart = errors.New("testharness: mock adapter refused to start")
