package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sohogrid/menuscout/internal/clock/system"
	"github.com/sohogrid/menuscout/internal/progress"
	"github.com/sohogrid/menuscout/internal/progress/sinks"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one scan over all registered zones and exit",
		Long: `Executes a single scan run: every registered zone is covered with
overlapping point queries, new restaurants are enriched and recorded, and
state plus per-zone CSV snapshots land in the data directory. Interrupting
the run persists everything found so far.`,
		RunE: runScanCommand,
	}
}

func runScanCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	if err := requirePlacesKey(cfg); err != nil {
		return err
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	fileSink, err := sinks.NewFileSink(store.EventLogPath())
	if err != nil {
		return fmt.Errorf("init event log: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLogSink(logger), fileSink)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := buildPipeline(cfg, store, hub, system.New(), logger)
	summary, err := p.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("scan run interrupted, partial results persisted")
			return nil
		}
		return fmt.Errorf("scan run: %w", err)
	}

	logger.Info("scan complete",
		zap.Int("zones_scanned", summary.ZonesScanned),
		zap.Int("new_found", summary.NewFound),
		zap.Int("total_known", summary.TotalKnown))
	return nil
}
