package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbbridge/internal/bridge"
)

func newServeCmd(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve bridge requests over HTTP",
		Long:  "Serve POST /bridges/db/mongo, /bridges/db/sqlite and /bridges/db.\nEngines connect on their first connect action.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = e.cfg.Server.Addr
			}

			d := bridge.NewDispatcher(e.cfg, e.logger)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := d.Close(ctx); err != nil {
					e.logger.Warnw("closing engines", "error", err)
				}
			}()

			srv := bridge.NewServer(d, e.cfg.Server.RequestTimeout, e.logger.Named("http"))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
