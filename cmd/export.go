package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sohogrid/menuscout/internal/discovery"
	"github.com/sohogrid/menuscout/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		outPath string
		zoneID  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the discovered restaurants as CSV",
		Long: `Exports the accumulated discovery state as CSV, to stdout or a file.
No network access is needed, so this works without a places API key.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExportCommand(cmd.Context(), outPath, zoneID)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&zoneID, "zone", "", "only export one zone")
	return cmd
}

func runExportCommand(ctx context.Context, outPath, zoneID string) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	store, err := buildStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	seed, err := store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	state := discovery.NewState(seed)

	entities := state.Entities()
	if zoneID != "" {
		entities = state.ZoneEntities(zoneID)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := export.Write(out, entities); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
