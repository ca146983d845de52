// Package policy implements the pure tool-approval decision function of
// spec §4.3: decide(mode, tool_name, {tool_permission?, overrides?}) ->
// PolicyDecision. The engine is stateless and deterministic — equal inputs
// always produce byte-for-byte equal decisions (spec §8 property 6).
//
// Grounded on the teacher's pkg/policy package, which layers a much richer
// selector/rule/breaker/budget engine on top of the same "bundle of rules
// decides an action" idea. That richer engine is not wired in here: spec
// §4.3 calls for a stateless pure function over four override lists plus a
// tool-permission class, not stateful breakers/budgets/dedupe windows (see
// DESIGN.md for the per-feature disposition).
package policy

// Mode is the per-session/per-task permission mode (spec §3, §4.3).
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeAsk  Mode = "ask"
	ModeYolo Mode = "yolo"
)

// ToolPermission classifies a tool's risk for the permission_mode:dangerous
// rule (spec §4.3 step 5).
type ToolPermission string

const (
	PermissionReadOnly ToolPermission = "read-only"
	PermissionWrite    ToolPermission = "write"
	PermissionNetwork  ToolPermission = "network"
	PermissionDangerous ToolPermission = "dangerous"
)

// Decision is one of allow/deny/ask.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
	DecisionAsk   Decision = "ask"
)

// Source identifies who produced one evaluation in a policy snapshot
// (spec §3 Policy snapshot).
type Source string

const (
	SourceRuntime Source = "runtime"
	SourceCodesdk Source = "codesdk"
	SourceUser    Source = "user"
)

// Overrides is the per-task or per-bundle override configuration
// (spec §3, §4.3).
type Overrides struct {
	AllowTools       []string `json:"allow_tools,omitempty"`
	DenyTools        []string `json:"deny_tools,omitempty"`
	AllowPermissions []ToolPermission `json:"allow_permissions,omitempty"`
	DenyPermissions  []ToolPermission `json:"deny_permissions,omitempty"`
}

// Input bundles decide()'s optional arguments.
type Input struct {
	ToolPermission ToolPermission
	Overrides      Overrides
}

// EvaluationEntry is one fired rule in the decision's audit trail.
type EvaluationEntry struct {
	Source Source
	Result Decision
	Rule   string
}

// PolicyDecision is decide()'s full result: the final action plus the
// ordered trail of every rule that was evaluated (spec §3 Policy snapshot).
type PolicyDecision struct {
	Mode     Mode
	Decision Decision
	Sources  []EvaluationEntry
}

// Decide evaluates the seven-step decision order from spec §4.3. First
// match wins; every source that fired is recorded, in evaluation order, in
// the returned snapshot.
func Decide(mode Mode, toolName string, in Input) PolicyDecision {
	var sources []EvaluationEntry
	record := func(result Decision, rule string) PolicyDecision {
		sources = append(sources, EvaluationEntry{Source: SourceCodesdk, Result: result, Rule: rule})
		return PolicyDecision{Mode: mode, Decision: result, Sources: sources}
	}

	// 1. Explicit tool deny.
	if containsString(in.Overrides.DenyTools, toolName) {
		return record(DecisionDeny, "override:deny_tool")
	}
	// 2. Permission-class deny.
	if in.ToolPermission != "" && containsPermission(in.Overrides.DenyPermissions, in.ToolPermission) {
		return record(DecisionDeny, "override:deny_permission")
	}
	// 3. Explicit tool allow.
	if containsString(in.Overrides.AllowTools, toolName) {
		return record(DecisionAllow, "override:allow_tool")
	}
	// 4. Permission-class allow.
	if in.ToolPermission != "" && containsPermission(in.Overrides.AllowPermissions, in.ToolPermission) {
		return record(DecisionAllow, "override:allow_permission")
	}
	// 5. Dangerous tools require yolo mode.
	if in.ToolPermission == PermissionDangerous && mode != ModeYolo {
		return record(DecisionDeny, "permission_mode:dangerous")
	}
	// 6. auto/yolo modes allow by default.
	if mode == ModeAuto || mode == ModeYolo {
		return record(DecisionAllow, "permission_mode:"+string(mode))
	}
	// 7. Otherwise ask.
	return record(DecisionAsk, "permission_mode:ask")
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func containsPermission(list []ToolPermission, value ToolPermission) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
