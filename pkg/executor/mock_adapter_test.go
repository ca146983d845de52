package executor_test

import (
	"context"
	"errors"
	"sync"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/event"
)

// scriptedAdapter is a minimal in-process adapter.Adapter used by the
// executor's own tests. Grounded on the teacher's pkg/testharness mock
// adapter: a hand-rolled double driven by a fixed script instead of a real
// backend, generalized from one HandleToolCall call into a full streamed
// TaskHandle.
//
// A real external_mcp/hybrid backend only emits events past a
// tool.call.requested once it has the tool's result in hand, so the
// script is split: leading events (including any tool.call.requested)
// are emitted immediately, trailing events wait for every requested tool
// call to be resolved via SendToolResult/SendToolDenied first.
type scriptedAdapter struct {
	caps            adapter.Capabilities
	leading         []event.Event
	trailing        []event.Event
	pendingToolCall bool
	startErr        error
	toolResults     chan adapter.ToolResult
	toolDenials     chan adapter.ToolDenial
	resolved        chan struct{}
	resolveOnce     sync.Once
}

func newScriptedAdapter(mode string, script []event.Event) *scriptedAdapter {
	a := &scriptedAdapter{
		caps:        adapter.Capabilities{Name: "mock", ToolExecutionMode: mode, SupportsStreaming: true},
		toolResults: make(chan adapter.ToolResult, 16),
		toolDenials: make(chan adapter.ToolDenial, 16),
		resolved:    make(chan struct{}),
	}
	for _, evt := range script {
		if evt.Type == event.TypeToolCallRequested {
			a.pendingToolCall = true
			a.leading = append(a.leading, evt)
			continue
		}
		if a.pendingToolCall {
			a.trailing = append(a.trailing, evt)
		} else {
			a.leading = append(a.leading, evt)
		}
	}
	return a
}

func (a *scriptedAdapter) Capabilities() adapter.Capabilities { return a.caps }

func (a *scriptedAdapter) AuthStatus(context.Context, string) (adapter.AuthStatus, error) {
	return adapter.AuthStatus{Authenticated: true}, nil
}

func (a *scriptedAdapter) CreateSession(context.Context, adapter.CreateSessionRequest) (string, error) {
	return "", nil
}

func (a *scriptedAdapter) ResumeSession(context.Context, string) error {
	return adapter.ErrResumeUnsupported
}

func (a *scriptedAdapter) StartTask(ctx context.Context, req adapter.StartTaskRequest) (adapter.TaskHandle, error) {
	if a.startErr != nil {
		return nil, a.startErr
	}
	h := &scriptedHandle{
		adapter: a,
		events:  make(chan event.Event, len(a.leading)+len(a.trailing)+1),
	}
	for _, evt := range a.leading {
		evt.Trace.SessionID = req.SessionID
		evt.Trace.TaskID = req.TaskID
		h.events <- evt
	}
	if !a.pendingToolCall {
		close(h.events)
		return h, nil
	}

	go func() {
		<-a.resolved
		for _, evt := range a.trailing {
			evt.Trace.SessionID = req.SessionID
			evt.Trace.TaskID = req.TaskID
			h.events <- evt
		}
		close(h.events)
	}()
	return h, nil
}

type scriptedHandle struct {
	adapter *scriptedAdapter
	events  chan event.Event
	mu      sync.Mutex
	stopped bool
}

func (h *scriptedHandle) Events() <-chan event.Event { return h.events }

func (h *scriptedHandle) SendToolResult(ctx context.Context, result adapter.ToolResult) error {
	defer h.adapter.resolveOnce.Do(func() { close(h.adapter.resolved) })
	select {
	case h.adapter.toolResults <- result:
		return nil
	default:
		return errors.New("result channel full")
	}
}

func (h *scriptedHandle) SendToolDenied(ctx context.Context, denial adapter.ToolDenial) error {
	defer h.adapter.resolveOnce.Do(func() { close(h.adapter.resolved) })
	select {
	case h.adapter.toolDenials <- denial:
		return nil
	default:
		return errors.New("denial channel full")
	}
}

func (h *scriptedHandle) Stop(ctx context.Context, reason string) error {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	return nil
}
