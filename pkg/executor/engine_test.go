package executor_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/artifact"
	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/eventstore"
	"github.com/codesdk/execd/pkg/executor"
	"github.com/codesdk/execd/pkg/policy"
)

type echoToolExecutor struct {
	output  []byte
	isError bool
}

func (e *echoToolExecutor) Execute(ctx context.Context, in executor.ToolCallInput, onOutput executor.OutputFunc) (executor.ToolExecutionResult, error) {
	onOutput("stdout", e.output)
	return executor.ToolExecutionResult{Output: e.output, IsError: e.isError}, nil
}

func waitForTerminal(t *testing.T, store eventstore.Store, sessionID string, timeout time.Duration) []event.Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		events, err := store.List(context.Background(), sessionID, 0, 0)
		require.NoError(t, err)
		for _, e := range events {
			if event.IsTerminal(e.Type) {
				return events
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for terminal event")
	return nil
}

func TestStartTask_CleanCompletion(t *testing.T) {
	store := eventstore.NewMemoryStore()
	adp := newScriptedAdapter("runtime_internal", []event.Event{
		{Type: event.TypeModelOutputCompleted, Payload: event.ModelOutputCompletedPayload{}},
		{Type: event.TypeTaskCompleted, Payload: event.TaskTerminalPayload{}},
	})

	eng := executor.New(executor.Config{
		Events:   store,
		Adapters: map[string]adapter.Adapter{"mock": adp},
	})

	h, err := eng.StartTask(context.Background(), executor.StartTaskInput{
		SessionID: "sess-1", TaskID: "task-1", AdapterName: "mock", PermissionMode: policy.ModeAuto,
	})
	require.NoError(t, err)
	<-h.Done()

	events := waitForTerminal(t, store, "sess-1", time.Second)
	require.Equal(t, event.TypeTaskCompleted, events[len(events)-1].Type)
}

func TestStartTask_SynthesizesTaskFailedOnAdapterStartError(t *testing.T) {
	store := eventstore.NewMemoryStore()
	adp := newScriptedAdapter("runtime_internal", nil)
	adp.startErr = context.DeadlineExceeded

	eng := executor.New(executor.Config{
		Events:   store,
		Adapters: map[string]adapter.Adapter{"mock": adp},
	})

	h, err := eng.StartTask(context.Background(), executor.StartTaskInput{
		SessionID: "sess-2", TaskID: "task-2", AdapterName: "mock", PermissionMode: policy.ModeAuto,
	})
	require.NoError(t, err)
	<-h.Done()

	events := waitForTerminal(t, store, "sess-2", time.Second)
	require.Equal(t, event.TypeTaskFailed, events[len(events)-1].Type)
}

func TestStartTask_ExternalToolCallAutoApprovedAndExecuted(t *testing.T) {
	store := eventstore.NewMemoryStore()
	adp := newScriptedAdapter("external_mcp", []event.Event{
		{Type: event.TypeToolCallRequested, Payload: event.ToolCallRequestedPayload{
			ToolCallID: "call-1", Attempt: 1, Name: "workspace.read", Input: map[string]any{"path": "a.txt"},
		}},
		{Type: event.TypeTaskCompleted, Payload: event.TaskTerminalPayload{}},
	})

	eng := executor.New(executor.Config{
		Events:       store,
		Artifacts:    artifact.NewMemoryStore(),
		Adapters:     map[string]adapter.Adapter{"mock": adp},
		ToolExecutor: &echoToolExecutor{output: []byte("contents")},
	})

	h, err := eng.StartTask(context.Background(), executor.StartTaskInput{
		SessionID: "sess-3", TaskID: "task-3", AdapterName: "mock", PermissionMode: policy.ModeAuto,
		ToolPermissions: map[string]policy.ToolPermission{"workspace.read": policy.PermissionReadOnly},
	})
	require.NoError(t, err)
	<-h.Done()

	events := waitForTerminal(t, store, "sess-3", time.Second)
	var sawCompleted, sawApproved bool
	for _, e := range events {
		switch e.Type {
		case event.TypeToolCallCompleted:
			sawCompleted = true
			payload := e.Payload.(event.ToolCallCompletedPayload)
			require.False(t, payload.IsError)
			require.Equal(t, "contents", payload.ResultPreview)
		case event.TypeToolCallApproved:
			sawApproved = true
		}
	}
	require.True(t, sawApproved)
	require.True(t, sawCompleted)

	result := <-adp.toolResults
	require.Equal(t, "call-1", result.ToolCallID)
}

func TestStartTask_ToolResultUnderInlineLimitIsNotTruncated(t *testing.T) {
	store := eventstore.NewMemoryStore()
	adp := newScriptedAdapter("external_mcp", []event.Event{
		{Type: event.TypeToolCallRequested, Payload: event.ToolCallRequestedPayload{
			ToolCallID: "call-mid", Attempt: 1, Name: "workspace.read", Input: map[string]any{"path": "a.txt"},
		}},
		{Type: event.TypeTaskCompleted, Payload: event.TaskTerminalPayload{}},
	})

	// 513 bytes: over the 512-byte preview limit, but well under the
	// 8000-byte inline limit, so it must come through ResultPreview whole.
	output := bytes.Repeat([]byte("x"), 513)

	eng := executor.New(executor.Config{
		Events:       store,
		Artifacts:    artifact.NewMemoryStore(),
		Adapters:     map[string]adapter.Adapter{"mock": adp},
		ToolExecutor: &echoToolExecutor{output: output},
	})

	h, err := eng.StartTask(context.Background(), executor.StartTaskInput{
		SessionID: "sess-mid", TaskID: "task-mid", AdapterName: "mock", PermissionMode: policy.ModeAuto,
		ToolPermissions: map[string]policy.ToolPermission{"workspace.read": policy.PermissionReadOnly},
	})
	require.NoError(t, err)
	<-h.Done()

	events := waitForTerminal(t, store, "sess-mid", time.Second)
	var found bool
	for _, e := range events {
		if e.Type != event.TypeToolCallCompleted {
			continue
		}
		found = true
		payload := e.Payload.(event.ToolCallCompletedPayload)
		require.False(t, payload.IsError)
		require.Nil(t, payload.ResultRef)
		require.Equal(t, string(output), payload.ResultPreview)
		require.Len(t, payload.ResultPreview, 513)
	}
	require.True(t, found)
}

func TestStartTask_AskModeWaitsThenApproves(t *testing.T) {
	store := eventstore.NewMemoryStore()
	adp := newScriptedAdapter("external_mcp", []event.Event{
		{Type: event.TypeToolCallRequested, Payload: event.ToolCallRequestedPayload{
			ToolCallID: "call-2", Attempt: 1, InputHash: "sha256:abc", Name: "shell.exec", Input: map[string]any{},
		}},
		{Type: event.TypeTaskCompleted, Payload: event.TaskTerminalPayload{}},
	})

	eng := executor.New(executor.Config{
		Events:       store,
		Artifacts:    artifact.NewMemoryStore(),
		Adapters:     map[string]adapter.Adapter{"mock": adp},
		ToolExecutor: &echoToolExecutor{output: []byte("ran")},
	})

	h, err := eng.StartTask(context.Background(), executor.StartTaskInput{
		SessionID: "sess-4", TaskID: "task-4", AdapterName: "mock", PermissionMode: policy.ModeAsk,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		err := eng.ApproveToolCall(executor.ApproveToolCallInput{
			SessionID: "sess-4", ToolCallID: "call-2", Attempt: 1, InputHash: "sha256:abc",
		})
		return err == nil
	}, time.Second, 5*time.Millisecond)

	<-h.Done()

	events := waitForTerminal(t, store, "sess-4", time.Second)
	var approvals int
	for _, e := range events {
		if e.Type == event.TypeToolCallPolicyEvaluated {
			approvals++
		}
	}
	require.Equal(t, 2, approvals) // codesdk ask + user allow
}

func TestStartTask_DeniedToolCallNeverExecutes(t *testing.T) {
	store := eventstore.NewMemoryStore()
	adp := newScriptedAdapter("external_mcp", []event.Event{
		{Type: event.TypeToolCallRequested, Payload: event.ToolCallRequestedPayload{
			ToolCallID: "call-3", Attempt: 1, Name: "shell.exec", Input: map[string]any{},
		}},
		{Type: event.TypeTaskCompleted, Payload: event.TaskTerminalPayload{}},
	})

	executed := false
	eng := executor.New(executor.Config{
		Events:    store,
		Artifacts: artifact.NewMemoryStore(),
		Adapters:  map[string]adapter.Adapter{"mock": adp},
		ToolExecutor: executorFunc(func(ctx context.Context, in executor.ToolCallInput, onOutput executor.OutputFunc) (executor.ToolExecutionResult, error) {
			executed = true
			return executor.ToolExecutionResult{}, nil
		}),
	})

	h, err := eng.StartTask(context.Background(), executor.StartTaskInput{
		SessionID: "sess-5", TaskID: "task-5", AdapterName: "mock", PermissionMode: policy.ModeAuto,
		Overrides: policy.Overrides{DenyTools: []string{"shell.exec"}},
	})
	require.NoError(t, err)
	<-h.Done()

	waitForTerminal(t, store, "sess-5", time.Second)
	require.False(t, executed)

	denial := <-adp.toolDenials
	require.Equal(t, "call-3", denial.ToolCallID)
}

type executorFunc func(ctx context.Context, in executor.ToolCallInput, onOutput executor.OutputFunc) (executor.ToolExecutionResult, error)

func (f executorFunc) Execute(ctx context.Context, in executor.ToolCallInput, onOutput executor.OutputFunc) (executor.ToolExecutionResult, error) {
	return f(ctx, in, onOutput)
}
