package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// =============================================================================
// Tasks Command
// =============================================================================

func buildTasksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tasks", Short: "Start, inspect, and stop tasks on a session"}
	cmd.AddCommand(buildTasksStartCmd(), buildTasksShowCmd(), buildTasksStopCmd())
	return cmd
}

func buildTasksStartCmd() *cobra.Command {
	var taskID, prompt, permMode string
	var tools []string

	cmd := &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start a task with a single user-role message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("--prompt is required")
			}
			manifest := make([]map[string]string, 0, len(tools))
			for _, t := range tools {
				name, perm, ok := strings.Cut(t, "=")
				if !ok {
					return fmt.Errorf("--tool must be name=permission, got %q", t)
				}
				manifest = append(manifest, map[string]string{"name": name, "permission": perm})
			}
			body := map[string]any{
				"taskId":         taskID,
				"messages":       []map[string]string{{"role": "user", "content": prompt}},
				"permissionMode": permMode,
				"toolManifest":   manifest,
			}
			var out map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/sessions/"+args[0]+"/tasks", body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&taskID, "task-id", "", "task id (generated if omitted)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "the task's one user message (required)")
	cmd.Flags().StringVar(&permMode, "permission-mode", "", "override the session's permission mode for this task")
	cmd.Flags().StringArrayVar(&tools, "tool", nil, "per-tool permission override name=permission, repeatable")
	return cmd
}

func buildTasksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id> <task-id>",
		Short: "Show a task's derived status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/sessions/"+args[0]+"/tasks/"+args[1], nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func buildTasksStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <session-id> <task-id>",
		Short: "Stop a running task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/sessions/"+args[0]+"/tasks/"+args[1]+"/stop", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
