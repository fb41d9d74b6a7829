package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ecolens/internal/api"
	"github.com/Veraticus/ecolens/internal/config"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scanning sessions over HTTP",
		Long: `Run the HTTP API. Clients create a session, upload frames and request
scans; each session gets the same gating and rewards as the terminal UI.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	profile, err := config.LoadEngineProfile()
	if err != nil {
		return fmt.Errorf("failed to load engine profile: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// The model loads while the listener comes up; sessions report not ready
	// until it is done.
	adapter, err := startClassifier(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = adapter.Close() }()

	publisher, stopPublisher, err := startPublisher()
	if err != nil {
		slog.Warn("Scan events will not be published", "error", err)
	}
	defer stopPublisher()

	builder := &sessionBuilder{profile: profile, adapter: adapter, sink: store, publisher: publisher}
	server := api.NewServer(builder.build, store, api.WithLogger(slog.Default().With("component", "api")))
	defer func() { _ = server.Close() }()

	addr := viper.GetString("server.addr")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🌿 Serving ecolens API", "addr", addr, "profile", profile.Name)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("Shutting down API server")
	return httpServer.Shutdown(shutdownCtx)
}
