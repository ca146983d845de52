package main

import (
	"os"

	"github.com/spf13/cobra"
)

var addrFlag string

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "execctl",
		Short:        "Operate an execd daemon over its HTTP API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&addrFlag, "addr", defaultAddr(), "execd base URL (or $EXECD_ADDR)")

	root.AddCommand(
		buildSessionsCmd(),
		buildTasksCmd(),
		buildEventsCmd(),
		buildToolCallsCmd(),
		buildArtifactsCmd(),
		buildSupportBundleCmd(),
		buildDoctorCmd(),
	)
	return root
}

func defaultAddr() string {
	if v := os.Getenv("EXECD_ADDR"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}

func client() *apiClient { return newAPIClient(addrFlag) }
