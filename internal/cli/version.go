package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the dbbridge release, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/dbbridge/internal/cli.Version=...".
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/dbbridge"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dbbridge version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "dbbridge v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
