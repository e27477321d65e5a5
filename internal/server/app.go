// Package server initializes and runs the DocSafe API server: it opens the
// database, applies migrations, and serves the HTTP API until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/docsafe/internal/logging"
	"github.com/dmitrijs2005/docsafe/internal/server/config"
	"github.com/dmitrijs2005/docsafe/internal/server/httpapi"
	"github.com/dmitrijs2005/docsafe/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docsafe/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	userService     *services.UserService
	documentService *services.DocumentService
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}

	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	us := services.NewUserService(db, rm, c)
	ds := services.NewDocumentService(db, rm, c)

	return &App{config: c, logger: logger, db: db, userService: us, documentService: ds}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger,
		app.userService, app.documentService, app.config.SecretKey)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err.Error())
	}
}
