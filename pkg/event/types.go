// Package event defines the normalized event schema every adapter and the
// executor engine share. Per spec §3/§6.3: a normalized event is the atomic
// unit of observability, identified within a session by a dense,
// monotonically increasing seq.
package event

import "time"

// SchemaVersion is the current normalized-event schema version.
const SchemaVersion = 1

// Type enumerates the normalized event kinds (§6.3).
type Type string

const (
	TypeSessionCreated          Type = "session.created"
	TypeTaskStarted             Type = "task.started"
	TypeModelInput              Type = "model.input"
	TypeRuntimeRequestStarted   Type = "runtime.request.started"
	TypeRuntimeRequestCompleted Type = "runtime.request.completed"
	TypeModelOutputDelta        Type = "model.output.delta"
	TypeModelOutputCompleted    Type = "model.output.completed"
	TypeToolCallRequested       Type = "tool.call.requested"
	TypeToolCallPolicyEvaluated Type = "tool.call.policy_evaluated"
	TypeToolCallApproved        Type = "tool.call.approved"
	TypeToolCallDenied          Type = "tool.call.denied"
	TypeToolCallStarted         Type = "tool.call.started"
	TypeToolOutputDelta         Type = "tool.output.delta"
	TypeToolOutputCompleted     Type = "tool.output.completed"
	TypeToolCallCompleted       Type = "tool.call.completed"
	TypeUsageReported           Type = "usage.reported"
	TypeTaskCompleted           Type = "task.completed"
	TypeTaskFailed              Type = "task.failed"
	TypeTaskStopped             Type = "task.stopped"
)

// terminalTypes are the task-lifecycle absorbing states (§3 Invariant: terminal).
var terminalTypes = map[Type]bool{
	TypeTaskCompleted: true,
	TypeTaskFailed:    true,
	TypeTaskStopped:   true,
}

// IsTerminal reports whether t is one of the three terminal task event types.
func IsTerminal(t Type) bool { return terminalTypes[t] }

// Trace identifies the owning session/task/request for an event (§3).
type Trace struct {
	SessionID string `json:"session_id"`
	TaskID    string `json:"task_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// Runtime identifies the adapter/runtime instance that produced an event.
type Runtime struct {
	Name             string `json:"name"`
	Model            string `json:"model,omitempty"`
	RuntimeSessionID string `json:"runtime_session_id,omitempty"`
}

// Event is the normalized, storable unit of observability (§3).
type Event struct {
	SchemaVersion int       `json:"schema_version"`
	Seq           int64     `json:"seq"`
	Time          time.Time `json:"time"`
	Type          Type      `json:"type"`
	Trace         Trace     `json:"trace"`
	Runtime       Runtime   `json:"runtime"`
	Payload       any       `json:"payload,omitempty"`
}

// NewEventFields is the input to Store.Append: everything about an event
// except the fields the store itself assigns (seq, schema_version, and time
// when left zero).
type NewEventFields struct {
	Time    time.Time
	Type    Type
	Trace   Trace
	Runtime Runtime
	Payload any
}
