package executor

import (
	"context"
	"time"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/event"
)

// runTask implements the task loop of spec §4.5.3. It always runs with the
// session's FIFO lock already held.
func (e *Engine) runTask(parent context.Context, in StartTaskInput, ts *taskState) {
	start := time.Now()
	trace := event.Trace{SessionID: in.SessionID, TaskID: in.TaskID}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	thReady := make(chan adapter.TaskHandle, 1)
	stopDone := make(chan struct{})
	go func() {
		defer close(stopDone)
		select {
		case reason := <-ts.stopCh:
			ts.setStopReason(reason)
			e.pending.CancelForTask(in.TaskID, reason)
			cancel()
			select {
			case th := <-thReady:
				_ = th.Stop(context.Background(), reason)
			default:
			}
		case <-ctx.Done():
		}
	}()

	adp, ok := e.adapters[in.AdapterName]
	if !ok {
		e.finishTerminal(ctx, ts, trace, event.TypeTaskFailed, event.TaskTerminalPayload{
			Error: "unknown adapter: " + in.AdapterName, Reason: "adapter_not_registered",
		})
		e.metrics.TaskFinished(in.SessionID, "failed", time.Since(start))
		return
	}

	th, err := adp.StartTask(ctx, adapter.StartTaskRequest{
		SessionID:        in.SessionID,
		TaskID:           in.TaskID,
		RuntimeSessionID: in.RuntimeSessionID,
		Prompt:           in.Prompt,
		Model:            in.Model,
		WorkDir:          in.WorkDir,
	})
	if err != nil {
		// 4.5.3 step 1 / 4.5.7: adapter startup failure -> synthetic
		// task.failed, no retry, lock released by the caller.
		e.finishTerminal(ctx, ts, trace, event.TypeTaskFailed, event.TaskTerminalPayload{
			Error: err.Error(), Retryable: false, Reason: "adapter_start_failed",
		})
		e.metrics.TaskFinished(in.SessionID, "failed", time.Since(start))
		return
	}
	thReady <- th

	jobs := make(chan event.ToolCallRequestedPayload, 64)
	jobsDone := make(chan struct{})
	go func() {
		defer close(jobsDone)
		for job := range jobs {
			e.handleToolCall(ctx, in, ts, th, job)
		}
	}()

	toolExecutionMode := adp.Capabilities().ToolExecutionMode
	var streamErr error
	adapterEmittedTerminal := false

	for evt := range th.Events() {
		if event.IsTerminal(evt.Type) && ts.getStopReason() != "" {
			break
		}
		stored, err := e.events.Append(ctx, in.SessionID, event.NewEventFields{
			Time: evt.Time, Type: evt.Type, Trace: evt.Trace, Runtime: evt.Runtime, Payload: evt.Payload,
		})
		if err != nil {
			streamErr = err
			break
		}

		if (toolExecutionMode == "external_mcp" || toolExecutionMode == "hybrid") && stored.Type == event.TypeToolCallRequested {
			if payload, ok := stored.Payload.(event.ToolCallRequestedPayload); ok {
				jobs <- payload
			}
		}

		if event.IsTerminal(stored.Type) {
			// 4.5.3 step 2c: the adapter emitted its own terminal event.
			adapterEmittedTerminal = true
			ts.markTerminal()
			break
		}
	}
	close(jobs)

	// Resolve any approval a tool handler is still waiting on before
	// draining the FIFO, per 4.5.4 step 3b / 4.5.5: once the adapter
	// stream has ended there is nothing left to approve against.
	e.pending.CancelForTask(in.TaskID, "task ended")
	<-jobsDone
	if ts.getStopReason() != "" {
		<-stopDone
	}

	status := "completed"
	switch {
	case streamErr != nil:
		e.finishTerminal(ctx, ts, trace, event.TypeTaskFailed, event.TaskTerminalPayload{
			Error: streamErr.Error(), Retryable: true, Reason: "adapter_stream_error",
		})
		status = "failed"
	case adapterEmittedTerminal:
		// Already appended above; nothing further to record.
	case ts.getStopReason() != "":
		e.finishTerminal(ctx, ts, trace, event.TypeTaskStopped, event.TaskTerminalPayload{Reason: ts.getStopReason()})
		status = "stopped"
	default:
		e.finishTerminal(ctx, ts, trace, event.TypeTaskCompleted, event.TaskTerminalPayload{})
	}

	e.metrics.TaskFinished(in.SessionID, status, time.Since(start))
}

// finishTerminal appends exactly one terminal event, using the background
// context so a cancelled task context never prevents recording why the
// task ended (spec §4.5.3 step 4: "exactly one terminal event is appended
// per task; double emission is suppressed").
func (e *Engine) finishTerminal(_ context.Context, ts *taskState, trace event.Trace, t event.Type, payload event.TaskTerminalPayload) {
	if !ts.markTerminal() {
		return
	}
	_, _ = e.events.Append(context.Background(), trace.SessionID, event.NewEventFields{
		Type: t, Trace: trace, Payload: payload,
	})
}
