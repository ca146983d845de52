package executor

import (
	"context"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/artifact"
	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/policy"
	"github.com/codesdk/execd/pkg/runtimeenv"
)

// handleToolCall runs one external_mcp/hybrid tool-call attempt to
// completion: policy evaluation, optional approval wait, execution,
// artifact offload, and result delivery (spec §4.5.4). Tool-handler
// subroutines for the same task run sequentially off the task's FIFO, but
// never block the adapter-event reader that enqueues them.
func (e *Engine) handleToolCall(ctx context.Context, in StartTaskInput, ts *taskState, th adapter.TaskHandle, req event.ToolCallRequestedPayload) {
	trace := event.Trace{SessionID: in.SessionID, TaskID: in.TaskID}

	overrides := in.Overrides
	if e.bundle != nil {
		overrides = mergeOverrides(e.bundle.Overrides(), overrides)
	}

	decision := policy.Decide(in.PermissionMode, req.Name, policy.Input{
		ToolPermission: in.ToolPermissions[req.Name],
		Overrides:      overrides,
	})
	e.appendEvent(trace, event.TypeToolCallPolicyEvaluated, event.ToolCallPolicyEvaluatedPayload{
		ToolCallID: req.ToolCallID, Attempt: req.Attempt, PolicySnapshot: decision.Snapshot(),
	})

	if decision.Decision == policy.DecisionDeny {
		e.denyToolCall(ctx, th, trace, req, decision, "denied by policy")
		return
	}

	if decision.Decision == policy.DecisionAsk {
		key := pendingKey{SessionID: in.SessionID, ToolCallID: req.ToolCallID}
		entry, err := e.pending.Register(key, req.Attempt, req.InputHash, in.TaskID)
		if err != nil {
			// Already pending: surface as a denial rather than silently
			// dropping the second request.
			e.denyToolCall(ctx, th, trace, req, decision, "duplicate pending approval")
			return
		}

		var resolution pendingResolution
		select {
		case resolution = <-entry.resolveCh:
		case <-ctx.Done():
			// Task context was cancelled. A stop cancels it right after
			// CancelForTask resolves this entry, so this branch can win
			// the race; the stop reason is kept either way.
			e.pending.release(key)
			reason := "task ended"
			if r := ts.getStopReason(); r != "" {
				reason = r
			}
			resolution = pendingResolution{Decision: policy.DecisionDeny, Reason: reason}
		}

		decision = decision.AppendUserEvaluation(resolution.Decision, "user:"+resolution.Reason)
		e.appendEvent(trace, event.TypeToolCallPolicyEvaluated, event.ToolCallPolicyEvaluatedPayload{
			ToolCallID: req.ToolCallID, Attempt: req.Attempt, PolicySnapshot: decision.Snapshot(),
		})

		if resolution.Decision == policy.DecisionDeny {
			e.denyToolCall(ctx, th, trace, req, decision, resolution.Reason)
			return
		}
	}

	e.appendEvent(trace, event.TypeToolCallApproved, event.ToolCallApprovedPayload{
		ToolCallID: req.ToolCallID, Attempt: req.Attempt, PolicySnapshot: decision.Snapshot(),
	})
	e.appendEvent(trace, event.TypeToolCallStarted, event.ToolCallStartedPayload{
		ToolCallID: req.ToolCallID, Attempt: req.Attempt,
	})

	var ns runtimeenv.Namespace
	if e.runtimeEnv != nil {
		ns, _ = e.runtimeEnv.Build(in.Namespace, in.SessionID)
	}

	var accumulated []byte
	hadOutput := false
	onOutput := func(stream string, chunk []byte) {
		hadOutput = true
		accumulated = append(accumulated, chunk...)
		e.appendEvent(trace, event.TypeToolOutputDelta, event.ToolOutputDeltaPayload{
			ToolCallID: req.ToolCallID, Stream: stream, Delta: string(chunk),
		})
	}

	result, err := e.toolExecutor.Execute(ctx, ToolCallInput{Name: req.Name, Input: req.Input, Env: ns}, onOutput)
	if err != nil {
		// 4.5.7: tool executor throws -> tool.call.completed is_error=true,
		// then propagate by appending task.failed.
		e.appendEvent(trace, event.TypeToolCallCompleted, event.ToolCallCompletedPayload{
			ToolCallID: req.ToolCallID, Attempt: req.Attempt, ExecutedBy: "codesdk",
			ExecutionEnv: defaultExecutionEnv, PolicySnapshot: decision.Snapshot(),
			ResultPreview: truncatePreview(err.Error(), previewLimit), IsError: true,
		})
		e.finishTerminal(ctx, ts, trace, event.TypeTaskFailed, event.TaskTerminalPayload{
			Error: err.Error(), Retryable: false, Reason: "tool_executor_error",
		})
		return
	}

	output := result.Output
	if len(output) == 0 {
		output = accumulated
	}
	if hadOutput || len(result.Output) > 0 {
		e.appendEvent(trace, event.TypeToolOutputCompleted, event.ToolOutputCompletedPayload{ToolCallID: req.ToolCallID})
	}

	executionEnv := result.ExecutionEnv
	if executionEnv == "" {
		executionEnv = defaultExecutionEnv
	}

	completed := event.ToolCallCompletedPayload{
		ToolCallID:     req.ToolCallID,
		Attempt:        req.Attempt,
		ExecutedBy:     "codesdk",
		ExecutionEnv:   executionEnv,
		PolicySnapshot: decision.Snapshot(),
		Sandbox:        result.Sandbox,
		IsError:        result.IsError,
	}
	if result.IsError {
		completed.ResultPreview = truncatePreview(result.ErrorMessage, previewLimit)
	} else {
		e.attachResult(ctx, &completed, output)
	}

	e.appendEvent(trace, event.TypeToolCallCompleted, completed)

	toolResult := adapter.ToolResult{ToolCallID: req.ToolCallID, IsError: completed.IsError}
	if completed.ResultRef != nil {
		toolResult.Output = completed.ResultRef
	} else {
		toolResult.Output = completed.ResultPreview
	}

	if err := th.SendToolResult(ctx, toolResult); err != nil {
		e.finishTerminal(ctx, ts, trace, event.TypeTaskFailed, event.TaskTerminalPayload{
			Error: err.Error(), Retryable: false, Reason: "send_tool_result_failed",
		})
	}
}

func (e *Engine) denyToolCall(ctx context.Context, th adapter.TaskHandle, trace event.Trace, req event.ToolCallRequestedPayload, decision policy.PolicyDecision, reason string) {
	e.appendEvent(trace, event.TypeToolCallDenied, event.ToolCallDeniedPayload{
		ToolCallID: req.ToolCallID, Attempt: req.Attempt, Reason: reason, PolicySnapshot: decision.Snapshot(),
	})
	_ = th.SendToolDenied(ctx, adapter.ToolDenial{ToolCallID: req.ToolCallID, Reason: reason})
}

// attachResult offloads large tool output to the artifact store (spec
// §4.5.4 step 6, §4.2 inline limit). Output at or under the inline limit is
// carried through ResultPreview in full — the 512-byte truncation only
// applies alongside a ResultRef, where ResultPreview is just a preview of
// bytes the caller can fetch in full from the artifact store.
func (e *Engine) attachResult(ctx context.Context, completed *event.ToolCallCompletedPayload, output []byte) {
	if len(output) == 0 {
		return
	}
	if len(output) <= inlineResultLimit || e.artifacts == nil {
		completed.ResultPreview = string(output)
		return
	}
	ref, err := e.artifacts.Put(ctx, output, artifact.PutOptions{ContentType: "application/octet-stream"})
	if err != nil {
		completed.ResultPreview = string(output)
		return
	}
	completed.ResultRef = &event.ArtifactRef{
		ArtifactID: ref.ArtifactID, ContentType: ref.ContentType, SizeBytes: ref.SizeBytes, ContentHash: ref.ContentHash,
	}
	completed.ResultPreview = truncatePreview(string(output), previewLimit)
}

func (e *Engine) appendEvent(trace event.Trace, t event.Type, payload any) {
	_, _ = e.events.Append(context.Background(), trace.SessionID, event.NewEventFields{
		Type: t, Trace: trace, Payload: payload,
	})
}

func mergeOverrides(base, task policy.Overrides) policy.Overrides {
	return policy.Overrides{
		AllowTools:       append(append([]string(nil), base.AllowTools...), task.AllowTools...),
		DenyTools:        append(append([]string(nil), base.DenyTools...), task.DenyTools...),
		AllowPermissions: append(append([]policy.ToolPermission(nil), base.AllowPermissions...), task.AllowPermissions...),
		DenyPermissions:  append(append([]policy.ToolPermission(nil), base.DenyPermissions...), task.DenyPermissions...),
	}
}
