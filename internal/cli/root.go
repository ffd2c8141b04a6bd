// Package cli implements the dbbridge command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/dbbridge/internal/config"
	"github.com/mesh-intelligence/dbbridge/internal/logging"
	"github.com/mesh-intelligence/dbbridge/internal/paths"
	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// exitUserError is the process exit code when a command fails.
const exitUserError = 1

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// env is what every command needs after the root pre-run: resolved
// directories, the loaded configuration and a logger.
type env struct {
	flags     rootFlags
	configDir string
	dataDir   string
	cfg       types.Config
	logger    *zap.SugaredLogger
}

// NewRootCmd creates the top-level "dbbridge" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "dbbridge",
		Short: "Bridge JSON requests to MongoDB and SQLite",
		Long:  "dbbridge serves JSON {action, data} requests against a document engine\nand a relational engine, and snapshots either one to JSON backups.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&e.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&e.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&e.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(e))
	root.AddCommand(newServeCmd(e))
	root.AddCommand(newBackupCmd(e))
	root.AddCommand(newBackupMetaCmd(e))
	root.AddCommand(newStatsCmd(e))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(exitUserError)
	}
}

func (e *env) resolveDirs() error {
	configDir, err := paths.ResolveConfigDir(e.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	dataDir, err := paths.ResolveDataDir(e.flags.dataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	e.configDir, e.dataDir = configDir, dataDir
	return nil
}

func (e *env) load() error {
	if err := e.resolveDirs(); err != nil {
		return err
	}
	cfg, err := config.Load(e.configDir, e.dataDir)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	e.cfg, e.logger = cfg, logger
	return nil
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
