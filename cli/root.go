package cli

import (
	"github.com/spf13/cobra"
)

// Version is the build version, overridable at link time.
var Version = "0.1.0"

// RootCmd assembles the ragserve command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ragserve",
		Short:         "ragserve - retrieval-augmented document question answering",
		Long:          "A server that indexes uploaded documents and answers questions grounded in their content.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewServeCommand())
	return root
}
