package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-files/pkg/simplefiles/config"
	"github.com/tendant/simple-files/pkg/simplefiles/thumbnail"
	"golang.org/x/sync/errgroup"
)

var (
	withWorker      bool
	shutdownTimeout time.Duration
	requestTimeout  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serve starts the HTTP API on PORT. With --with-worker the thumbnail and welcome pipeline runs in the same process, which is required when QUEUE_URL is "memory".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
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

		var worker *thumbnail.Worker
		if withWorker {
			if worker, err = rt.NewWorker(); err != nil {
				return err
			}
		} else if cfg.QueueType() == config.BackendMemory {
			slog.Warn("memory queue without --with-worker: thumbnails will not be generated")
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(middleware.Timeout(requestTimeout))
		r.Mount("/", rt.Handler())

		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Port),
			Handler: r,
		}

		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			slog.Info("Simple Files server starting", "port", cfg.Port, "env", cfg.Environment)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			slog.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(egCtx), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})

		if worker != nil {
			eg.Go(func() error {
				return worker.Run(egCtx)
			})
		}

		err = eg.Wait()
		slog.Info("Server exiting")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&withWorker, "with-worker", false, "Run the background worker in-process")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "Grace period for in-flight requests on shutdown")
	serveCmd.Flags().DurationVar(&requestTimeout, "request-timeout", 60*time.Second, "Per-request timeout")
}
