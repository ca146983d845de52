// Package testharness wires an in-process Engine against a MockAdapter so
// end-to-end scenarios (spec §8 E1-E7) can be expressed as a script plus a
// handful of assertions, without a running HTTP server or real runtime
// backend.
//
// Grounded on the teacher's pkg/testharness.TestHarness orchestration idea
// (one object owning every test-run component's lifecycle), rebuilt around
// the new in-process Engine/MockAdapter rather than the teacher's
// subprocess-shim-plus-fake-server model, which has no equivalent here: the
// engine under test runs in the same process as the adapter double, so
// there is no shim binary or stdio transport to spawn.
package testharness

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/artifact"
	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/eventstore"
	"github.com/codesdk/execd/pkg/executor"
	"github.com/codesdk/execd/pkg/policy"
)

// Harness bundles an Engine with the in-memory stores backing it and the
// mock adapter driving it.
type Harness struct {
	Events    eventstore.Store
	Artifacts artifact.Store
	Engine    *executor.Engine
	Adapter   *MockAdapter
}

// New builds a harness around adapterMock, registered under the name
// "mock". toolExecutor may be nil (no external_mcp/hybrid tool calls in
// the script).
func New(adapterMock *MockAdapter, toolExecutor executor.ToolExecutor) *Harness {
	events := eventstore.NewMemoryStore()
	artifacts := artifact.NewMemoryStore()
	eng := executor.New(executor.Config{
		Events:       events,
		Artifacts:    artifacts,
		Adapters:     map[string]adapter.Adapter{"mock": adapterMock},
		ToolExecutor: toolExecutor,
	})
	return &Harness{Events: events, Artifacts: artifacts, Engine: eng, Adapter: adapterMock}
}

// RunTaskInput is the scenario-level equivalent of executor.StartTaskInput,
// with ids auto-generated when left empty.
type RunTaskInput struct {
	SessionID       string
	TaskID          string
	PermissionMode  policy.Mode
	Overrides       policy.Overrides
	ToolPermissions map[string]policy.ToolPermission
}

// RunTask starts one task against the harness's engine and blocks until a
// terminal event has been appended (or timeout elapses), then returns the
// full stored event sequence for the session.
func (h *Harness) RunTask(t interface{ Fatalf(string, ...any) }, in RunTaskInput, timeout time.Duration) []event.Event {
	if in.SessionID == "" {
		in.SessionID = "sess-" + uuid.NewString()
	}
	if in.TaskID == "" {
		in.TaskID = "task-" + uuid.NewString()
	}
	if in.PermissionMode == "" {
		in.PermissionMode = policy.ModeAuto
	}

	handle, err := h.Engine.StartTask(context.Background(), executor.StartTaskInput{
		SessionID:       in.SessionID,
		TaskID:          in.TaskID,
		AdapterName:     "mock",
		PermissionMode:  in.PermissionMode,
		Overrides:       in.Overrides,
		ToolPermissions: in.ToolPermissions,
	})
	if err != nil {
		t.Fatalf("start task: %v", err)
		return nil
	}

	select {
	case <-handle.Done():
	case <-time.After(timeout):
		t.Fatalf("task %s did not finish within %s", in.TaskID, timeout)
		return nil
	}

	events, err := h.Events.List(context.Background(), in.SessionID, 0, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
		return nil
	}
	return events
}
