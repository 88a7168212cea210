package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-files/pkg/simplefiles"
	"github.com/tendant/simple-files/pkg/simplefiles/config"
	"github.com/tendant/simple-files/pkg/simplefiles/scan"
)

var (
	backfillDryRun    bool
	backfillBatchSize int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Re-enqueue thumbnail jobs for images missing derivatives",
	Long:  `Backfill scans every stored image and enqueues a thumbnail job for each one that lacks at least one derivative. Run it after jobs were dead-lettered or when the worker was down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.QueueType() == config.BackendMemory && !backfillDryRun {
			return errors.New("backfill needs a shared queue: set QUEUE_URL to redis://...")
		}

		ctx := cmd.Context()
		rt, err := cfg.Build(ctx, slog.Default())
		if err != nil {
			return err
		}
		defer func() {
			if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("failed to close runtime", "err", err)
			}
		}()

		result, err := scan.New(rt.Repository, slog.Default()).Scan(ctx, scan.Options{
			Kind:      simplefiles.KindImage,
			Processor: scan.NewThumbnailBackfill(rt.Blobs, rt.Placement, rt.Queue),
			BatchSize: backfillBatchSize,
			DryRun:    backfillDryRun,
			OnProgress: func(processed, total int64) {
				slog.Info("backfill progress", "processed", processed, "found", total)
			},
		})
		if err != nil {
			return err
		}

		slog.Info("backfill finished",
			"found", result.TotalFound,
			"enqueued", result.TotalProcessed,
			"skipped", result.TotalSkipped,
			"failed", result.TotalFailed)
		if result.TotalFailed > 0 {
			return errors.New("some images could not be enqueued")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "List images without enqueueing jobs")
	backfillCmd.Flags().IntVar(&backfillBatchSize, "batch-size", 100, "Objects fetched per query")
}
