// Package serve implements the serve command that runs the HTTP API.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/binged/internal/api"
	"github.com/tphakala/binged/internal/conf"
	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/logger"
	"github.com/tphakala/binged/internal/observability"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the movie API server",
		Long:  "Connect to the configured database and serve the movie API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("sqlite") {
				settings.Database.Type = "sqlite"
			}
			return Run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags defines the serve flags and binds them to their settings keys.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("port", "", "Port to listen on (default 3001)")
	cmd.Flags().String("cors-origin", "", "Allowed CORS origin (default http://localhost:5173)")
	cmd.Flags().String("sqlite", "", "Use a SQLite database at this path instead of MySQL")

	bindings := map[string]string{
		"webserver.port":       "port",
		"webserver.corsorigin": "cors-origin",
		"database.sqlite.path": "sqlite",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Run wires metrics, the store and the HTTP server, and blocks until ctx is
// cancelled or the process is interrupted. A store that fails to connect is
// logged and the server runs anyway; its data routes then answer 500.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("main")
	if ctx == nil {
		ctx = context.Background()
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("error initializing metrics: %w", err)
	}

	store, err := datastore.New(settings, datastore.WithMetrics(metrics.Datastore))
	if err != nil {
		return fmt.Errorf("error creating datastore: %w", err)
	}

	if err := store.Open(); err != nil {
		log.Error("Database connection failed, API will report errors until restart",
			logger.String("type", settings.Database.Type),
			logger.Error(err))
	} else {
		log.Info("Connected to database", logger.String("type", settings.Database.Type))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close datastore", logger.Error(err))
		}
	}()

	server, err := api.New(settings,
		api.WithDataStore(store),
		api.WithMetrics(metrics))
	if err != nil {
		return err
	}

	stopRotate := rotateLogsOnHangup(log)
	defer stopRotate()

	log.Info("Server listening", logger.String("address", server.Config().Address()))
	return server.StartWithGracefulShutdown(ctx)
}

// rotateLogsOnHangup rotates log files on SIGHUP until the returned func is called.
func rotateLogsOnHangup(log logger.Logger) func() {
	hup := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-hup:
				if err := logger.Global().Rotate(); err != nil {
					log.Warn("log rotation failed", logger.Error(err))
				} else {
					log.Info("log files rotated")
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(hup)
		close(done)
	}
}
