// Package contract runs the literal end-to-end scenarios of spec §8
// (E1-E7) against an in-process Engine + MockAdapter, following the
// teacher's test/contract naming convention for scenario-level (as
// opposed to unit-level) coverage.
package contract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/executor"
	"github.com/codesdk/execd/pkg/policy"
	"github.com/codesdk/execd/pkg/testharness"
)

type echoExecutor struct{}

func (echoExecutor) Execute(ctx context.Context, in executor.ToolCallInput, onOutput executor.OutputFunc) (executor.ToolExecutionResult, error) {
	out := []byte("echo:" + in.Name)
	if onOutput != nil {
		onOutput("stdout", out)
	}
	return executor.ToolExecutionResult{Output: out}, nil
}

func toolRequested(id string, attempt int, name string) event.Event {
	return event.Event{Type: event.TypeToolCallRequested, Payload: event.ToolCallRequestedPayload{
		ToolCallID: id, Attempt: attempt, InputHash: "h1", Name: name, Input: map[string]any{"path": "a"},
	}}
}

func terminal(typ event.Type) event.Event {
	return event.Event{Type: typ, Payload: event.TaskTerminalPayload{}}
}

func typesOf(events []event.Event) []event.Type {
	out := make([]event.Type, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// E1 — auto mode, external tool.
func TestE1_AutoMode_ExternalTool(t *testing.T) {
	mock := testharness.NewMockAdapter("external_mcp", []event.Event{
		toolRequested("tc1", 1, "workspace.read"),
		terminal(event.TypeTaskCompleted),
	})
	h := testharness.New(mock, echoExecutor{})

	events := h.RunTask(t, testharness.RunTaskInput{PermissionMode: policy.ModeAuto}, time.Second)

	types := typesOf(events)
	require.Contains(t, types, event.TypeToolCallRequested)
	require.Contains(t, types, event.TypeToolCallPolicyEvaluated)
	require.Contains(t, types, event.TypeToolCallApproved)
	require.Contains(t, types, event.TypeToolCallStarted)
	require.Contains(t, types, event.TypeToolCallCompleted)
	require.Equal(t, event.TypeTaskCompleted, types[len(types)-1])
	require.Len(t, mock.ToolResults(), 1)
}

// E2 — ask mode, deny.
func TestE2_AskMode_Deny(t *testing.T) {
	mock := testharness.NewMockAdapter("external_mcp", []event.Event{
		toolRequested("tc1", 1, "workspace.write"),
		terminal(event.TypeTaskCompleted),
	})
	h := testharness.New(mock, echoExecutor{})

	sessionID := "sess-e2"
	taskID := "task-e2"
	handle, err := h.Engine.StartTask(context.Background(), executor.StartTaskInput{
		SessionID: sessionID, TaskID: taskID, AdapterName: "mock", PermissionMode: policy.ModeAsk,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, _ := h.Events.List(context.Background(), sessionID, 0, 0)
		for _, e := range events {
			if e.Type == event.TypeToolCallPolicyEvaluated {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Engine.DenyToolCall(executor.DenyToolCallInput{
		SessionID: sessionID, ToolCallID: "tc1", Attempt: 1, InputHash: "h1", Reason: "no",
	}))

	<-handle.Done()
	events, err := h.Events.List(context.Background(), sessionID, 0, 0)
	require.NoError(t, err)
	types := typesOf(events)
	require.Contains(t, types, event.TypeToolCallDenied)
	require.Equal(t, event.TypeTaskCompleted, types[len(types)-1])
	require.Len(t, mock.ToolDenials(), 1)
}

// E3 — identity mismatch.
func TestE3_IdentityMismatch(t *testing.T) {
	mock := testharness.NewMockAdapter("external_mcp", []event.Event{
		toolRequested("tc1", 1, "workspace.write"),
		terminal(event.TypeTaskCompleted),
	})
	h := testharness.New(mock, echoExecutor{})

	sessionID := "sess-e3"
	_, err := h.Engine.StartTask(context.Background(), executor.StartTaskInput{
		SessionID: sessionID, TaskID: "task-e3", AdapterName: "mock", PermissionMode: policy.ModeAsk,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, _ := h.Events.List(context.Background(), sessionID, 0, 0)
		for _, e := range events {
			if e.Type == event.TypeToolCallPolicyEvaluated {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	err = h.Engine.DenyToolCall(executor.DenyToolCallInput{
		SessionID: sessionID, ToolCallID: "tc1", Attempt: 2, InputHash: "h1",
	})
	require.Error(t, err)
}

// E4 — parallel tools, request order preserved.
func TestE4_ParallelTools_CompleteInRequestOrder(t *testing.T) {
	mock := testharness.NewMockAdapter("external_mcp", []event.Event{
		toolRequested("tc1", 1, "workspace.read"),
		toolRequested("tc2", 1, "workspace.list"),
		terminal(event.TypeTaskCompleted),
	})
	h := testharness.New(mock, echoExecutor{})

	events := h.RunTask(t, testharness.RunTaskInput{PermissionMode: policy.ModeAuto}, time.Second)

	var completedOrder []string
	for _, e := range events {
		if e.Type == event.TypeToolCallCompleted {
			completedOrder = append(completedOrder, e.Payload.(event.ToolCallCompletedPayload).ToolCallID)
		}
	}
	require.Equal(t, []string{"tc1", "tc2"}, completedOrder)
	require.Equal(t, event.TypeTaskCompleted, events[len(events)-1].Type)
	require.Len(t, mock.ToolResults(), 2)
}

// E5 — runtime-internal tool execution: engine must not touch the tool
// lifecycle past tool.call.requested.
func TestE5_RuntimeInternal_EngineDoesNotIntervene(t *testing.T) {
	mock := testharness.NewMockAdapter("runtime_internal", []event.Event{
		toolRequested("tc1", 1, "workspace.read"),
		{Type: event.TypeToolCallCompleted, Payload: event.ToolCallCompletedPayload{
			ToolCallID: "tc1", Attempt: 1, ExecutedBy: "runtime", ExecutionEnv: "runtime_internal",
		}},
		terminal(event.TypeTaskCompleted),
	})
	h := testharness.New(mock, nil)

	events := h.RunTask(t, testharness.RunTaskInput{PermissionMode: policy.ModeAuto}, time.Second)

	types := typesOf(events)
	require.NotContains(t, types, event.TypeToolCallApproved)
	require.NotContains(t, types, event.TypeToolCallStarted)
	require.Empty(t, mock.ToolResults())
}

// E6 — stop: task.stopped appended exactly once, pending approvals
// resolve as denies with the stop reason.
func TestE6_Stop_ResolvesPendingAsDeny(t *testing.T) {
	mock := testharness.NewMockAdapter("external_mcp", []event.Event{
		toolRequested("tc1", 1, "workspace.write"),
		terminal(event.TypeTaskCompleted),
	})
	h := testharness.New(mock, echoExecutor{})

	sessionID := "sess-e6"
	taskID := "task-e6"
	handle, err := h.Engine.StartTask(context.Background(), executor.StartTaskInput{
		SessionID: sessionID, TaskID: taskID, AdapterName: "mock", PermissionMode: policy.ModeAsk,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, _ := h.Events.List(context.Background(), sessionID, 0, 0)
		for _, e := range events {
			if e.Type == event.TypeToolCallPolicyEvaluated {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Engine.Stop(taskID, "user"))
	<-handle.Done()

	events, err := h.Events.List(context.Background(), sessionID, 0, 0)
	require.NoError(t, err)

	stopCount := 0
	for _, e := range events {
		if e.Type == event.TypeTaskStopped {
			stopCount++
		}
	}
	require.Equal(t, 1, stopCount)
	require.Contains(t, mock.StopReasons(), "user")
	require.Len(t, mock.ToolDenials(), 1)
	require.Equal(t, "user", mock.ToolDenials()[0].Reason)
}

// E7 — artifact offload: a large tool result yields result_ref plus a
// 512-byte result_preview, and GET-equivalent artifact fetch returns the
// exact bytes.
func TestE7_ArtifactOffload_LargeResult(t *testing.T) {
	big := make([]byte, 8001)
	for i := range big {
		big[i] = 'x'
	}

	mock := testharness.NewMockAdapter("external_mcp", []event.Event{
		toolRequested("tc1", 1, "workspace.read"),
		terminal(event.TypeTaskCompleted),
	})
	h := testharness.New(mock, bigOutputExecutor{out: big})

	events := h.RunTask(t, testharness.RunTaskInput{PermissionMode: policy.ModeAuto}, time.Second)

	var completed event.ToolCallCompletedPayload
	found := false
	for _, e := range events {
		if e.Type == event.TypeToolCallCompleted {
			completed = e.Payload.(event.ToolCallCompletedPayload)
			found = true
		}
	}
	require.True(t, found)
	require.NotNil(t, completed.ResultRef)
	require.LessOrEqual(t, len(completed.ResultPreview), 512)

	record, err := h.Artifacts.Get(context.Background(), completed.ResultRef.ArtifactID)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, big, record.Bytes)
}

type bigOutputExecutor struct{ out []byte }

func (b bigOutputExecutor) Execute(ctx context.Context, in executor.ToolCallInput, onOutput executor.OutputFunc) (executor.ToolExecutionResult, error) {
	return executor.ToolExecutionResult{Output: b.out}, nil
}
