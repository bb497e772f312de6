package applib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tomyedwab/todos/applib/database"
)

const shutdownGracePeriod = 5 * time.Second

type Application struct {
	config  Config
	db      *database.Database
	handler http.Handler
	logger  *slog.Logger
}

func NewApplication(config Config, db *database.Database, handler http.Handler, logger *slog.Logger) *Application {
	return &Application{
		config:  config,
		db:      db,
		handler: handler,
		logger:  logger,
	}
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// the server down and closes the database.
func (app *Application) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", app.config.ListenAddr)
	if err != nil {
		app.db.Close()
		return fmt.Errorf("failed to listen on %s: %w", app.config.ListenAddr, err)
	}
	return app.serve(ctx, listener)
}

func (app *Application) serve(ctx context.Context, listener net.Listener) error {
	defer app.db.Close()

	server := &http.Server{Handler: app.handler}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("Starting server", "addr", listener.Addr().String())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *Application) Handler() http.Handler {
	return app.handler
}

func (app *Application) GetDatabase() *database.Database {
	return app.db
}
