package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbbridge/internal/bridge"
	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

func newStatsCmd(e *env) *cobra.Command {
	var engine string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-collection counts and latest modification times",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := bridge.NewDispatcher(e.cfg, e.logger)
			defer d.Close(cmd.Context())

			if err := d.Connect(cmd.Context(), engine); err != nil {
				return err
			}
			store, err := d.Store(engine)
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if e.flags.jsonMode {
				return printJSON(cmd, stats)
			}
			printStats(cmd, stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&engine, "engine", bridge.EngineMongo, "engine to inspect (mongo or sqlite)")
	return cmd
}

func printStats(cmd *cobra.Command, stats []types.CollectionStats) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLLECTION\tCOUNT\tLATEST")
	for _, s := range stats {
		latest := "-"
		if s.LatestMtFormatted != nil {
			latest = *s.LatestMtFormatted
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, s.Count, latest)
	}
	w.Flush()
}
