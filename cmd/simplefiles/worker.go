package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-files/pkg/simplefiles/config"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume thumbnail and welcome jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.QueueType() == config.BackendMemory {
			return errors.New("a standalone worker needs a shared queue: set QUEUE_URL to redis://... or use serve --with-worker")
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

		worker, err := rt.NewWorker()
		if err != nil {
			return err
		}
		return worker.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
