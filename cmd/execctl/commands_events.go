package main

import "github.com/spf13/cobra"

// =============================================================================
// Events Command
// =============================================================================

func buildEventsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "events", Short: "Inspect a session's normalized event log"}
	cmd.AddCommand(buildEventsTailCmd())
	return cmd
}

func buildEventsTailCmd() *cobra.Command {
	var afterSeq int64

	cmd := &cobra.Command{
		Use:   "tail <session-id>",
		Short: "Stream a session's events to stdout as JSONL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().streamEvents(cmd.Context(), cmd.OutOrStdout(), args[0], afterSeq)
		},
	}
	cmd.Flags().Int64Var(&afterSeq, "after-seq", 0, "resume the stream after this sequence number")
	return cmd
}
