package executor

import (
	"fmt"
	"sync"

	"github.com/codesdk/execd/pkg/policy"
)

// pendingKey identifies one pending tool-call approval (spec §4.5.1,
// §4.5.4): the pending-approval side table is keyed by (session_id,
// tool_call_id), never by task, so a stray RPC for another session's call
// ID can never resolve the wrong entry.
type pendingKey struct {
	SessionID  string
	ToolCallID string
}

// pendingResolution is what a waiting tool-handler subroutine receives once
// an approval is resolved, whether by RPC, cancellation, or task end.
type pendingResolution struct {
	Decision policy.Decision
	Reason   string
}

type pendingEntry struct {
	Attempt   int
	InputHash string
	TaskID    string
	resolveCh chan pendingResolution
	resolved  bool
}

// pendingApprovals is the mutex-protected map of in-flight "ask" decisions
// awaiting a human verdict (spec §5: "Pending-approval map is protected by
// a mutex; keys never collide across sessions").
type pendingApprovals struct {
	mu      sync.Mutex
	entries map[pendingKey]*pendingEntry
}

func newPendingApprovals() *pendingApprovals {
	return &pendingApprovals{entries: make(map[pendingKey]*pendingEntry)}
}

// ErrAlreadyPending is returned by Register when an entry already exists
// for the key (spec §4.5.4 step 3a: "It is an error to register twice").
var ErrAlreadyPending = fmt.Errorf("executor: tool call already has a pending approval")

// ErrNoPendingApproval is returned by Resolve when no entry exists for the
// key, or when attempt/input_hash do not match the registered record
// (spec §4.5.1).
var ErrNoPendingApproval = fmt.Errorf("executor: no matching pending approval")

func (p *pendingApprovals) Register(key pendingKey, attempt int, inputHash, taskID string) (*pendingEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.entries[key]; exists {
		return nil, ErrAlreadyPending
	}
	entry := &pendingEntry{
		Attempt:   attempt,
		InputHash: inputHash,
		TaskID:    taskID,
		resolveCh: make(chan pendingResolution, 1),
	}
	p.entries[key] = entry
	return entry, nil
}

// Resolve is the approve_tool_call/deny_tool_call RPC path (spec §4.5.1):
// it rejects unless (attempt, input_hash) exactly match the registered
// pending record.
func (p *pendingApprovals) Resolve(key pendingKey, attempt int, inputHash string, decision policy.Decision, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[key]
	if !ok || entry.resolved {
		return ErrNoPendingApproval
	}
	if entry.Attempt != attempt || entry.InputHash != inputHash {
		return ErrNoPendingApproval
	}
	entry.resolved = true
	delete(p.entries, key)
	entry.resolveCh <- pendingResolution{Decision: decision, Reason: reason}
	return nil
}

// CancelForTask resolves every still-pending approval belonging to taskID
// as a deny with the given reason (spec §4.5.4 step 3b, §4.5.5).
func (p *pendingApprovals) CancelForTask(taskID, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, entry := range p.entries {
		if entry.TaskID != taskID || entry.resolved {
			continue
		}
		entry.resolved = true
		delete(p.entries, key)
		entry.resolveCh <- pendingResolution{Decision: policy.DecisionDeny, Reason: reason}
	}
}

// release removes an entry without resolving it (used once a waiter has
// already observed a resolution and wants the table cleaned up defensively;
// normally Resolve/CancelForTask already delete the key).
func (p *pendingApprovals) release(key pendingKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
}
