// Command rosterctl runs roster maintenance from the shell: schema migration, week mirroring,
// stale batch sweeps, report exports and token issuing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-roster-api/internal/bootstrap"
	"github.com/noah-isme/shift-roster-api/pkg/config"
	"github.com/noah-isme/shift-roster-api/pkg/logger"
)

type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
}

func (rt *runtime) app(ctx context.Context) (*bootstrap.App, error) {
	return bootstrap.New(ctx, rt.cfg, rt.logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := &runtime{}
	root := newRootCommand(rt)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Maintenance commands for the shift roster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt.cfg = cfg
			rt.logger = logr
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newMigrateCommand(rt),
		newMirrorCommand(rt),
		newSweepCommand(rt),
		newCleanupCommand(rt),
		newExportCommand(rt),
		newTokenCommand(rt),
	)
	return root
}
