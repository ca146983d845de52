package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// =============================================================================
// Doctor Command
// =============================================================================

func buildDoctorCmd() *cobra.Command {
	var runtime string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check GET /health on the daemon at --addr",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/health"
			if runtime != "" {
				path += "?runtime=" + runtime
			}
			var out map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, path, nil, &out); err != nil {
				return fmt.Errorf("%s is unreachable: %w", addrFlag, err)
			}
			if ok, _ := out["ok"].(bool); !ok {
				_ = printJSON(cmd.OutOrStdout(), out)
				return fmt.Errorf("%s reports unhealthy", addrFlag)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&runtime, "runtime", "", "check a specific runtime's auth status instead of the default")
	return cmd
}
