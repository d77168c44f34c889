package cli

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "cowmcp",
		Short:   "MCP gateway for the PolicyCow compliance backend",
		Version: Version,
	}

	root.AddCommand(
		ServeCmd(),
	)

	return root
}
