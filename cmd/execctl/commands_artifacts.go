package main

import (
	"net/http"

	"github.com/spf13/cobra"
)

// =============================================================================
// Artifacts Command
// =============================================================================

func buildArtifactsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "artifacts", Short: "Inspect tool-output artifacts offloaded to the artifact store"}
	cmd.AddCommand(buildArtifactsGetCmd())
	return cmd
}

func buildArtifactsGetCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "get <artifact-id>",
		Short: "Fetch artifact metadata, or its bytes with --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "" {
				return client().downloadFile(cmd.Context(), "/artifacts/"+args[0]+"/download", out)
			}
			var meta map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/artifacts/"+args[0], nil, &meta); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), meta)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the artifact's bytes to this file instead of printing metadata")
	return cmd
}
