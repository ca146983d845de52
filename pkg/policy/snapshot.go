package policy

import "github.com/codesdk/execd/pkg/event"

// Snapshot converts a PolicyDecision into the wire-level event.PolicySnapshot
// attached to tool lifecycle events (spec §3 Policy snapshot).
func (d PolicyDecision) Snapshot() event.PolicySnapshot {
	sources := make([]event.PolicySource, 0, len(d.Sources))
	for _, s := range d.Sources {
		sources = append(sources, event.PolicySource{
			Source: string(s.Source),
			Result: string(s.Result),
			Rule:   s.Rule,
		})
	}
	return event.PolicySnapshot{
		PermissionMode: string(d.Mode),
		Decision:       string(d.Decision),
		Sources:        sources,
	}
}

// AppendUserEvaluation records a human approve/deny decision on top of an
// existing snapshot, as spec §4.5.4 step 3c requires when an "ask" decision
// is resolved by a pending-approval response.
func (d PolicyDecision) AppendUserEvaluation(result Decision, rule string) PolicyDecision {
	d.Sources = append(append([]EvaluationEntry(nil), d.Sources...), EvaluationEntry{
		Source: SourceUser,
		Result: result,
		Rule:   rule,
	})
	d.Decision = result
	return d
}
