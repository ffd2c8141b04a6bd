package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbbridge/internal/config"
)

func newInitCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		Long:  "Create the configuration directory and write config.yaml with default values if it does not exist.",
		// init must work before any config exists, so it skips the root load.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.resolveDirs()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, written, err := config.WriteDefault(e.configDir, e.dataDir)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
			}
			return nil
		},
	}
}
