package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbbridge/internal/bridge"
	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

func newBackupCmd(e *env) *cobra.Command {
	var engine string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON backup of every collection",
		Long:  "Write <collection>.json for every collection not matching backup.skip_prefixes,\nthen the manifest, into backup.dir.",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := bridge.NewDispatcher(e.cfg, e.logger)
			defer d.Close(cmd.Context())

			if err := d.Connect(cmd.Context(), engine); err != nil {
				return err
			}
			manifest, err := d.Backup(cmd.Context(), engine)
			if err != nil {
				return err
			}
			return printManifest(cmd, e, manifest)
		},
	}
	cmd.Flags().StringVar(&engine, "engine", bridge.EngineMongo, "engine to back up (mongo or sqlite)")
	return cmd
}

func newBackupMetaCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "backup-meta",
		Short: "Show the manifest of the last completed backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := bridge.NewDispatcher(e.cfg, e.logger).BackupMeta()
			if err != nil {
				return err
			}
			return printManifest(cmd, e, manifest)
		},
	}
}

func printManifest(cmd *cobra.Command, e *env, m types.BackupManifest) error {
	if e.flags.jsonMode {
		return printJSON(cmd, m)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backup %s\n", m.TimestampFormatted)
	printStats(cmd, m.Stats)
	return nil
}
