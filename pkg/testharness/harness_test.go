package testharness_test

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

type noopExecutor struct{}

func (noopExecutor) Execute(ctx context.Context, in executor.ToolCallInput, onOutput executor.OutputFunc) (executor.ToolExecutionResult, error) {
	return executor.ToolExecutionResult{}, nil
}

func TestHarness_RunTask_ReplaysScriptToTerminal(t *testing.T) {
	mock := testharness.NewMockAdapter("runtime_internal", []event.Event{
		{Type: event.TypeModelOutputDelta, Payload: event.ModelOutputDeltaPayload{Delta: "hi"}},
		{Type: event.TypeTaskCompleted, Payload: event.TaskTerminalPayload{}},
	})
	h := testharness.New(mock, noopExecutor{})

	events := h.RunTask(t, testharness.RunTaskInput{PermissionMode: policy.ModeAuto}, time.Second)

	require.NotEmpty(t, events)
	require.Equal(t, event.TypeTaskCompleted, events[len(events)-1].Type)
}

func TestHarness_RunTask_StartError(t *testing.T) {
	mock := testharness.NewMockAdapter("runtime_internal", nil).WithStartError(testharness.ErrMockStart)
	h := testharness.New(mock, noopExecutor{})

	events := h.RunTask(t, testharness.RunTaskInput{}, time.Second)

	require.NotEmpty(t, events)
	require.Equal(t, event.TypeTaskFailed, events[len(events)-1].Type)
}
