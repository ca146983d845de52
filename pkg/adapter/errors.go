package adapter

import "errors"

// ErrResumeUnsupported is returned by ResumeSession on adapters whose
// backend has no notion of a resumable session.
var ErrResumeUnsupported = errors.New("adapter: resume not supported")

// ErrUnknownTask is returned when a tool result/denial/stop arrives for a
// task the adapter has no live handle for (already terminal, or never
// started).
var ErrUnknownTask = errors.New("adapter: unknown task")
