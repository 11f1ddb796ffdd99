// Package server initializes and runs the accountd server: it connects the
// configured credential store, wires the session service and HTTP API, and
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/avolkov/accountd/internal/logging"
	"github.com/avolkov/accountd/internal/server/api"
	"github.com/avolkov/accountd/internal/server/config"
	"github.com/avolkov/accountd/internal/server/migrations"
	"github.com/avolkov/accountd/internal/server/repositories/users"
	"github.com/avolkov/accountd/internal/server/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	handler    *api.Handler
	closeStore func(context.Context) error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	store, closeStore, err := OpenStore(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	us := services.NewUserService(store, logger, cfg)
	handler := api.NewHandler(us, store, logger, cfg)

	return &App{
		config:     cfg,
		logger:     logger,
		handler:    handler,
		closeStore: closeStore,
	}, nil
}

// OpenStore connects the credential store selected by the DSN scheme:
// mongodb:// for the document backend, postgres:// for the relational one.
// The returned closer releases the underlying connections.
func OpenStore(ctx context.Context, dsn string) (users.Repository, func(context.Context) error, error) {
	if strings.HasPrefix(dsn, "mongodb://") || strings.HasPrefix(dsn, "mongodb+srv://") {
		client, err := mongo.Connect(options.Client().ApplyURI(dsn))
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to mongodb: %w", err)
		}
		repo := users.NewMongoRepository(client.Database(databaseName(dsn)))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return repo, client.Disconnect, nil
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres connection: %w", err)
		}
		if err := migrations.Run(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		return users.NewPostgresRepository(db), func(context.Context) error { return db.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unsupported database DSN %q", dsn)
}

// databaseName extracts the database from the DSN path, falling back to
// "accountd" when the DSN does not name one.
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "accountd"
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "accountd"
	}
	return name
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.handler.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "server shutdown failed", "error", err)
	}
	if err := app.closeStore(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "closing store failed", "error", err)
	}

	return nil
}
