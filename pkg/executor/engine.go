// Package executor implements the engine that is the only writer to the
// event store for a given task, orchestrating an adapter, the policy
// engine, the artifact store, the external tool executor, and
// pending-approval state (spec §4.5).
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/apperr"
	"github.com/codesdk/execd/pkg/artifact"
	"github.com/codesdk/execd/pkg/eventstore"
	"github.com/codesdk/execd/pkg/policy"
	"github.com/codesdk/execd/pkg/runtimeenv"
)

// inlineResultLimit and previewLimit implement spec §4.5.4 step 6 / §4.2.
const (
	inlineResultLimit = 8000
	previewLimit      = 512
)

// Config wires the engine's collaborators.
type Config struct {
	Events       eventstore.Store
	Artifacts    artifact.Store
	Adapters     map[string]adapter.Adapter
	ToolExecutor ToolExecutor
	RuntimeEnv   *runtimeenv.Builder
	Bundle       *policy.BundleLoader
	Metrics      Metrics
}

// Engine is the executor described by spec §4.5. One Engine instance
// serves every session in the daemon process.
type Engine struct {
	events       eventstore.Store
	artifacts    artifact.Store
	adapters     map[string]adapter.Adapter
	toolExecutor ToolExecutor
	runtimeEnv   *runtimeenv.Builder
	bundle       *policy.BundleLoader
	metrics      Metrics

	locks   *sessionLocks
	pending *pendingApprovals

	mu    sync.Mutex
	tasks map[string]*taskState
}

// New constructs an Engine. Bundle and Metrics are optional: a nil Bundle
// means no default overrides, a nil Metrics means NoopMetrics.
func New(cfg Config) *Engine {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Engine{
		events:       cfg.Events,
		artifacts:    cfg.Artifacts,
		adapters:     cfg.Adapters,
		toolExecutor: cfg.ToolExecutor,
		runtimeEnv:   cfg.RuntimeEnv,
		bundle:       cfg.Bundle,
		metrics:      metrics,
		locks:        newSessionLocks(),
		pending:      newPendingApprovals(),
		tasks:        make(map[string]*taskState),
	}
}

// StartTaskInput is start_task's argument (spec §4.5.1).
type StartTaskInput struct {
	SessionID        string
	TaskID           string
	AdapterName      string
	RuntimeSessionID string
	Namespace        string
	Prompt           string
	Model            string
	WorkDir          string
	PermissionMode   policy.Mode
	Overrides        policy.Overrides
	ToolPermissions  map[string]policy.ToolPermission // tool name -> permission class, from the adapter's manifest
}

// Handle is returned immediately by StartTask; the run itself proceeds
// under the session's FIFO lock (spec §4.5.1).
type Handle struct {
	SessionID string
	TaskID    string

	engine *Engine
	done   chan struct{}
}

// Done closes once the task has reached a terminal state and the lock has
// been released.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stop requests best-effort cancellation (spec §4.5.5).
func (h *Handle) Stop(reason string) error {
	return h.engine.stopTask(h.TaskID, reason)
}

// taskState is the engine's bookkeeping for one in-flight task.
type taskState struct {
	stopCh     chan string
	stopOnce   sync.Once
	terminalMu sync.Mutex
	terminal   bool

	stopMu     sync.Mutex
	stopReason string
}

func (t *taskState) markTerminal() bool {
	t.terminalMu.Lock()
	defer t.terminalMu.Unlock()
	if t.terminal {
		return false
	}
	t.terminal = true
	return true
}

func (t *taskState) setStopReason(reason string) {
	t.stopMu.Lock()
	t.stopReason = reason
	t.stopMu.Unlock()
}

func (t *taskState) getStopReason() string {
	t.stopMu.Lock()
	defer t.stopMu.Unlock()
	return t.stopReason
}

// StartTask begins a task turn. Non-blocking: the caller receives a handle
// immediately while the run proceeds under the session's FIFO lock
// (spec §4.5.1, §4.5.2).
func (e *Engine) StartTask(ctx context.Context, in StartTaskInput) (*Handle, error) {
	if in.SessionID == "" || in.TaskID == "" {
		return nil, apperr.New(apperr.CodeInvalidEvent, "session_id and task_id are required")
	}

	lock := e.locks.get(in.SessionID)
	ts := &taskState{stopCh: make(chan string, 1)}

	e.mu.Lock()
	e.tasks[in.TaskID] = ts
	e.mu.Unlock()

	e.metrics.QueueDepth(in.SessionID, lock.QueueDepth())

	h := &Handle{SessionID: in.SessionID, TaskID: in.TaskID, engine: e, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer func() {
			e.mu.Lock()
			delete(e.tasks, in.TaskID)
			e.mu.Unlock()
		}()

		if err := lock.Acquire(context.Background()); err != nil {
			return
		}
		defer lock.Release()

		e.metrics.TaskStarted(in.SessionID)
		e.runTask(context.Background(), in, ts)
	}()

	return h, nil
}

// Stop requests best-effort cancellation of a running task by ID (spec
// §4.5.5, exposed to the HTTP layer as POST .../tasks/{taskId}/stop).
func (e *Engine) Stop(taskID, reason string) error {
	return e.stopTask(taskID, reason)
}

func (e *Engine) stopTask(taskID, reason string) error {
	e.mu.Lock()
	ts, ok := e.tasks[taskID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("executor: %w", apperr.New(apperr.CodeInvalidEvent, "unknown task "+taskID))
	}
	ts.stopOnce.Do(func() {
		ts.stopCh <- reason
	})
	return nil
}

// ApproveToolCallInput / DenyToolCallInput carry the identity check spec
// §4.5.1 requires: (attempt, input_hash) must match the registered pending
// record exactly.
type ApproveToolCallInput struct {
	SessionID  string
	ToolCallID string
	Attempt    int
	InputHash  string
}

type DenyToolCallInput struct {
	SessionID  string
	ToolCallID string
	Attempt    int
	InputHash  string
	Reason     string
}

// ApproveToolCall resolves a pending approval as allow (spec §4.5.1).
func (e *Engine) ApproveToolCall(in ApproveToolCallInput) error {
	key := pendingKey{SessionID: in.SessionID, ToolCallID: in.ToolCallID}
	if err := e.pending.Resolve(key, in.Attempt, in.InputHash, policy.DecisionAllow, ""); err != nil {
		return err
	}
	return nil
}

// DenyToolCall resolves a pending approval as deny (spec §4.5.1).
func (e *Engine) DenyToolCall(in DenyToolCallInput) error {
	key := pendingKey{SessionID: in.SessionID, ToolCallID: in.ToolCallID}
	reason := in.Reason
	if reason == "" {
		reason = "denied by user"
	}
	if err := e.pending.Resolve(key, in.Attempt, in.InputHash, policy.DecisionDeny, reason); err != nil {
		return err
	}
	return nil
}

func truncatePreview(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
