package event

// serialize.go - JSONL serialization for events
//
// Events are streamed to multiple destinations at once: the SSE endpoint,
// the event store, and a session's support bundle. JSONL (JSON Lines) is
// the wire format shared by all three: one compact JSON object per line,
// newline-terminated, so a consumer can parse a stream incrementally
// without ever buffering a whole response.
//
// FLOW:
//   Event struct (Type + Trace + Payload)
//       ↓
//   SerializeEvent()
//       ↓
//   []byte: {"type":"tool.call.completed","trace":{...},"payload":{...}}\n
//       ↓
//   SSE writer | eventstore.Store | supportbundle events.jsonl
//
// CONTRACT (spec §6.3):
// - One JSON object per line (no pretty-printing)
// - UTF-8 encoding
// - Newline \n terminator (not \r\n)
// - NO multi-line JSON objects

import "encoding/json"

// SerializeEvent converts an event to JSONL format (single line + newline).
// Per spec §6.3:
// - One JSON object per line
// - UTF-8 encoding
// - Newline \n terminator
// - NO multi-line JSON objects
//
// Uses json.Marshal which produces compact JSON (no whitespace/newlines).
func SerializeEvent(event any) ([]byte, error) {
	// json.Marshal produces compact JSON (single line, no indentation)
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	// Append newline terminator per JSONL spec
	jsonBytes = append(jsonBytes, '\n')

	return jsonBytes, nil
}
