package main

import (
	"net/http"

	"github.com/spf13/cobra"
)

// =============================================================================
// Tool-calls Command
// =============================================================================

func buildToolCallsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tool-calls", Short: "Resolve tool calls pending approval under ask mode"}
	cmd.AddCommand(buildToolCallsApproveCmd(), buildToolCallsDenyCmd())
	return cmd
}

func buildToolCallsApproveCmd() *cobra.Command {
	var attempt int
	var inputHash string

	cmd := &cobra.Command{
		Use:   "approve <session-id> <tool-call-id>",
		Short: "Approve a pending tool call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"attempt": attempt, "input_hash": inputHash}
			var out map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/sessions/"+args[0]+"/tool-calls/"+args[1]+"/approve", body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&attempt, "attempt", 1, "attempt number being resolved")
	cmd.Flags().StringVar(&inputHash, "input-hash", "", "canonical input hash identifying the pending call")
	return cmd
}

func buildToolCallsDenyCmd() *cobra.Command {
	var attempt int
	var inputHash, reason string

	cmd := &cobra.Command{
		Use:   "deny <session-id> <tool-call-id>",
		Short: "Deny a pending tool call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"attempt": attempt, "input_hash": inputHash, "reason": reason}
			var out map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/sessions/"+args[0]+"/tool-calls/"+args[1]+"/deny", body, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&attempt, "attempt", 1, "attempt number being resolved")
	cmd.Flags().StringVar(&inputHash, "input-hash", "", "canonical input hash identifying the pending call")
	cmd.Flags().StringVar(&reason, "reason", "denied via execctl", "denial reason recorded on the event")
	return cmd
}
