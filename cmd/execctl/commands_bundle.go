package main

import (
	"net/url"

	"github.com/spf13/cobra"
)

// =============================================================================
// Support-bundle Command
// =============================================================================

func buildSupportBundleCmd() *cobra.Command {
	var out, taskID string

	cmd := &cobra.Command{
		Use:   "support-bundle <session-id>",
		Short: "Download a session's support bundle (tar.gz of its events and artifacts)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := out
			if dest == "" {
				dest = "support-bundle-" + args[0] + ".tar.gz"
			}
			path := "/sessions/" + args[0] + "/support-bundle"
			if taskID != "" {
				path += "?" + (url.Values{"task_id": {taskID}}).Encode()
			}
			if err := client().downloadFile(cmd.Context(), path, dest); err != nil {
				return err
			}
			cmd.Println(dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default support-bundle-<session-id>.tar.gz)")
	cmd.Flags().StringVar(&taskID, "task-id", "", "restrict the bundle to a single task")
	return cmd
}
