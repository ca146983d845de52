package main

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// =============================================================================
// Sessions Command
// =============================================================================

func buildSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Manage execd sessions"}
	cmd.AddCommand(buildSessionsListCmd(), buildSessionsCreateCmd(), buildSessionsShowCmd())
	return cmd
}

func buildSessionsListCmd() *cobra.Command {
	var after string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if after != "" {
				q.Set("after", after)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			var out map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/sessions?"+q.Encode(), nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&after, "after", "", "list sessions created after this session id")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum sessions to return")
	return cmd
}

func buildSessionsCreateCmd() *cobra.Command {
	var runtime, namespace, isolationLevel, isolationMode, cwd, model, permMode string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session against a runtime adapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"runtime":             runtime,
				"credentialNamespace": namespace,
				"isolationLevel":      isolationLevel,
				"isolationMode":       isolationMode,
				"cwd":                 cwd,
				"model":               model,
				"permissionMode":      permMode,
			}
			var out map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/sessions", body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&runtime, "runtime", "", "runtime adapter name (defaults to the daemon's --default-runtime)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "credential namespace, scopes filesystem isolation")
	cmd.Flags().StringVar(&isolationLevel, "isolation-level", "", "filesystem isolation level")
	cmd.Flags().StringVar(&isolationMode, "isolation-mode", "", "filesystem isolation mode")
	cmd.Flags().StringVar(&cwd, "cwd", "", "task working directory (defaults to the daemon's --workspace-root)")
	cmd.Flags().StringVar(&model, "model", "", "model name passed to the runtime adapter")
	cmd.Flags().StringVar(&permMode, "permission-mode", "", "one of auto, ask, yolo (defaults to the daemon's --default-permission-mode)")
	return cmd
}

func buildSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/sessions/"+args[0], nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
