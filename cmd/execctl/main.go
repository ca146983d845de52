// Command execctl is the operator CLI for execd (spec §6.9): a thin HTTP
// client over the daemon's session/task/event/tool-call/artifact surface.
//
// Grounded on the teacher's cmd/sub dispatcher for the set of operations it
// exposes, rebuilt on spf13/cobra in the style of the haasonsaas-nexus
// cmd/nexus command tree (one buildXCmd per subcommand, RunE delegating to
// a client method) since execctl's subcommand count makes Cobra's shared
// persistent flags and nested command tree pay for themselves.
package main

import "os"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
