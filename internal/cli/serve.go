package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api"
)

// RunServe runs the API server until SIGINT or SIGTERM. port overrides the
// configured port when positive.
func RunServe(app *App, port int) error {
	apiCfg := api.Config{
		Port:           app.Config.API.Port,
		AllowedOrigins: app.Config.API.AllowedOrigins,
	}
	if port > 0 {
		apiCfg.Port = port
	}

	server := api.NewServer(apiCfg, app.Service, api.Options{
		Schema:   app.Storage,
		Gatherer: app.Registry,
	}, app.Logger)

	// Handle graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		<-quit
		app.Logger.Info("received shutdown signal")

		// let an in-flight run finish its writes
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			app.Logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	app.Logger.Info("server stopped")
	return nil
}
