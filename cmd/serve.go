package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mappoint/geocsv/internal/pipeline"
	"github.com/mappoint/geocsv/internal/server"
)

var (
	servePort     int
	serveCache    string
	serveLanguage string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the geocoding HTTP API",
	Long: `Starts an HTTP server that accepts CSV uploads, geocodes them as background
jobs under the same one-request-per-second policy as "run", and serves the
GeoJSON and failure-CSV artifacts per job.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		geocoder, closeGeocoder, err := buildGeocoder(serveCache, serveLanguage)
		if err != nil {
			return err
		}
		defer closeGeocoder()

		runner := pipeline.NewRunner(pipeline.NewProcessor(geocoder), cfg.Batch.ProgressEvery)
		manager := server.NewManager(runner)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           server.Handler(manager, server.Options{MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "serve: listen")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	serveCmd.Flags().StringVar(&serveCache, "cache", "", "path to a SQLite geocode cache (default from config; empty = no cache)")
	serveCmd.Flags().StringVar(&serveLanguage, "language", "", "accept-language hint for results (default from config)")
	rootCmd.AddCommand(serveCmd)
}
