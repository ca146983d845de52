package event

// This file defines the type-specific payload records referenced from
// Event.Payload. Payloads are plain structs serialized via encoding/json;
// canonicalization (pkg/canonical) is only applied where the spec calls for
// a hash, not to the event envelope itself.

// ArtifactRef is an artifact reference without bytes (§3 Artifact).
type ArtifactRef struct {
	ArtifactID  string `json:"artifact_id"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentHash string `json:"content_hash"`
	Name        string `json:"name,omitempty"`
}

// ContextWindowMeta describes the compiled input's context-window accounting.
type ContextWindowMeta struct {
	MaxTokens       int  `json:"max_tokens"`
	UsedTokens      int  `json:"used_tokens"`
	Truncated       bool `json:"truncated"`
	Overflow        bool `json:"overflow"`
}

// ModelInputPayload is the §4.4 normalization contract's model.input payload.
type ModelInputPayload struct {
	InputRef            ArtifactRef        `json:"input_ref"`
	InputHash            string             `json:"input_hash"`
	ContextWindow        ContextWindowMeta  `json:"context_window"`
	ImplicitSourcesRef   *ArtifactRef       `json:"implicit_sources_ref,omitempty"`
}

// DeltaKind enumerates model.output.delta block kinds.
type DeltaKind string

const (
	DeltaKindText    DeltaKind = "text_delta"
	DeltaKindJSON    DeltaKind = "json_delta"
	DeltaKindCode    DeltaKind = "code_delta"
	DeltaKindUnknown DeltaKind = "unknown_delta"
)

// ModelOutputDeltaPayload carries one streamed content block increment.
type ModelOutputDeltaPayload struct {
	BlockID string    `json:"block_id"`
	Kind    DeltaKind `json:"kind"`
	Delta   string    `json:"delta"`
}

// ContentBlock is one finished block of an assistant turn.
type ContentBlock struct {
	BlockID string    `json:"block_id"`
	Kind    DeltaKind `json:"kind"`
	Content string    `json:"content"`
}

// ModelOutputCompletedPayload carries the final content blocks of a turn.
type ModelOutputCompletedPayload struct {
	Blocks []ContentBlock `json:"blocks"`
}

// PolicySource is one evaluation in a policy snapshot's audit trail (§3).
type PolicySource struct {
	Source string `json:"source"` // runtime | codesdk | user
	Result string `json:"result"` // allow | deny | ask
	Rule   string `json:"rule"`
}

// PolicySnapshot is attached to every tool lifecycle event (§3).
type PolicySnapshot struct {
	PermissionMode string         `json:"permission_mode"`
	Decision       string         `json:"decision"` // allow | deny | ask
	Sources        []PolicySource `json:"sources"`
}

// ToolCallRequestedPayload is §4.4 item 4's tool.call.requested payload.
type ToolCallRequestedPayload struct {
	ToolCallID string         `json:"tool_call_id"`
	Attempt    int            `json:"attempt"`
	InputHash  string         `json:"input_hash"`
	Name       string         `json:"name"`
	Input      map[string]any `json:"input"`
}

// ToolCallPolicyEvaluatedPayload records one policy evaluation pass.
type ToolCallPolicyEvaluatedPayload struct {
	ToolCallID     string       `json:"tool_call_id"`
	Attempt        int          `json:"attempt"`
	PolicySnapshot PolicySnapshot `json:"policy_snapshot"`
}

// ToolCallApprovedPayload / ToolCallDeniedPayload / ToolCallStartedPayload
// mark tool-attempt state transitions (§4.5.6).
type ToolCallApprovedPayload struct {
	ToolCallID     string         `json:"tool_call_id"`
	Attempt        int            `json:"attempt"`
	PolicySnapshot PolicySnapshot `json:"policy_snapshot"`
}

type ToolCallDeniedPayload struct {
	ToolCallID     string         `json:"tool_call_id"`
	Attempt        int            `json:"attempt"`
	Reason         string         `json:"reason"`
	PolicySnapshot PolicySnapshot `json:"policy_snapshot"`
}

type ToolCallStartedPayload struct {
	ToolCallID string `json:"tool_call_id"`
	Attempt    int    `json:"attempt"`
}

// ToolOutputDeltaPayload streams one stdout/stderr chunk from a running tool.
type ToolOutputDeltaPayload struct {
	ToolCallID string `json:"tool_call_id"`
	Stream     string `json:"stream"` // stdout | stderr
	Delta      string `json:"delta"`
}

type ToolOutputCompletedPayload struct {
	ToolCallID string `json:"tool_call_id"`
}

// SandboxSummary describes the isolation the executor applied, if any.
type SandboxSummary struct {
	Isolation string `json:"isolation,omitempty"`
}

// ToolCallCompletedPayload is the terminal event for one tool-call attempt.
type ToolCallCompletedPayload struct {
	ToolCallID     string          `json:"tool_call_id"`
	Attempt        int             `json:"attempt"`
	ExecutedBy     string          `json:"executed_by"` // runtime | codesdk
	ExecutionEnv   string          `json:"execution_env"`
	PolicySnapshot PolicySnapshot  `json:"policy_snapshot"`
	Sandbox        *SandboxSummary `json:"sandbox,omitempty"`
	ResultRef      *ArtifactRef    `json:"result_ref,omitempty"`
	ResultPreview  string          `json:"result_preview,omitempty"`
	IsError        bool            `json:"is_error"`
}

// UsageReportedPayload carries token accounting for one model turn.
type UsageReportedPayload struct {
	InputTokens        int `json:"input_tokens"`
	OutputTokens       int `json:"output_tokens"`
	CacheReadTokens    int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens   int `json:"cache_write_tokens,omitempty"`
}

// TaskTerminalPayload is shared by task.completed/failed/stopped.
type TaskTerminalPayload struct {
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// SessionCreatedPayload / TaskStartedPayload are the run-lifecycle markers.
type SessionCreatedPayload struct {
	Runtime string `json:"runtime"`
}

type TaskStartedPayload struct {
	PermissionMode string `json:"permission_mode"`
}
