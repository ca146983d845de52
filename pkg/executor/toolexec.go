package executor

import (
	"context"

	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/runtimeenv"
)

// ToolCallInput is what the engine hands the external tool executor for
// one external_mcp/hybrid tool call (spec §4.5.4 step 5).
type ToolCallInput struct {
	Name  string
	Input map[string]any
	Env   runtimeenv.Namespace
}

// OutputFunc receives one streamed stdout/stderr chunk as the tool runs.
type OutputFunc func(stream string, chunk []byte)

// ToolExecutionResult is the external tool executor's outcome.
type ToolExecutionResult struct {
	ExecutionEnv string // defaults to "codesdk_host" when the executor leaves it empty
	Sandbox      *event.SandboxSummary
	Output       []byte
	IsError      bool
	ErrorMessage string
}

// ToolExecutor runs one external_mcp/hybrid tool call to completion,
// reporting streamed output via onOutput (spec §4.5.4 steps 5-6).
type ToolExecutor interface {
	Execute(ctx context.Context, in ToolCallInput, onOutput OutputFunc) (ToolExecutionResult, error)
}

const defaultExecutionEnv = "codesdk_host"
