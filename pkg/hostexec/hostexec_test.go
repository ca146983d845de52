package hostexec_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codesdk/execd/pkg/executor"
	"github.com/codesdk/execd/pkg/hostexec"
	"github.com/codesdk/execd/pkg/runtimeenv"
)

func TestExecute_StreamsStdoutAndAccumulatesResult(t *testing.T) {
	reg := hostexec.Registry{
		"echo": {Path: "/bin/sh", Args: []string{"-c", "cat; echo done >&2"}},
	}
	x := hostexec.New(reg)

	var chunks []string
	result, err := x.Execute(context.Background(), executor.ToolCallInput{
		Name:  "echo",
		Input: map[string]any{"path": "a"},
	}, func(stream string, chunk []byte) {
		chunks = append(chunks, stream+":"+string(chunk))
	})

	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "codesdk_host", result.ExecutionEnv)
	require.NotEmpty(t, result.Output)
	require.NotEmpty(t, chunks)
}

func TestExecute_UnknownToolFails(t *testing.T) {
	x := hostexec.New(hostexec.Registry{})
	_, err := x.Execute(context.Background(), executor.ToolCallInput{Name: "missing"}, nil)
	require.Error(t, err)
}

func TestExecute_NonZeroExitIsError(t *testing.T) {
	x := hostexec.New(hostexec.Registry{"fail": {Path: "/bin/sh", Args: []string{"-c", "exit 1"}}})
	result, err := x.Execute(context.Background(), executor.ToolCallInput{Name: "fail"}, nil)
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.NotEmpty(t, result.ErrorMessage)
}

func TestExecute_RunsWithinNamespaceWorkDir(t *testing.T) {
	b, err := runtimeenv.NewBuilder(t.TempDir())
	require.NoError(t, err)
	ns, err := b.Build("cred-a", "sess-1")
	require.NoError(t, err)

	x := hostexec.New(hostexec.Registry{"pwd": {Path: "/bin/pwd"}})
	result, err := x.Execute(context.Background(), executor.ToolCallInput{Name: "pwd", Env: ns}, nil)
	require.NoError(t, err)
	require.False(t, result.IsError)
	wantDir, err := filepath.EvalSymlinks(ns.WorkDir)
	require.NoError(t, err)
	require.Equal(t, wantDir, strings.TrimSpace(string(result.Output)))
}

func TestExecute_ContextCancelStopsProcess(t *testing.T) {
	x := hostexec.New(hostexec.Registry{"sleep": {Path: "/bin/sleep", Args: []string{"5"}}})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := x.Execute(ctx, executor.ToolCallInput{Name: "sleep"}, nil)
	require.Error(t, err)
}
