// Package app initializes and runs the service: configuration, logging,
// the relational and document stores, the background label suggester and
// the HTTP router, with graceful shutdown on termination signals.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ptracker-app/ptracker/internal/accounts"
	"github.com/ptracker-app/ptracker/internal/auth"
	"github.com/ptracker-app/ptracker/internal/classifier"
	"github.com/ptracker-app/ptracker/internal/config"
	"github.com/ptracker-app/ptracker/internal/db/listdb"
	"github.com/ptracker-app/ptracker/internal/db/listfiledb"
	"github.com/ptracker-app/ptracker/internal/db/postgresdb"
	"github.com/ptracker-app/ptracker/internal/gallery"
	"github.com/ptracker-app/ptracker/internal/logger"
	"github.com/ptracker-app/ptracker/internal/models"
	"github.com/ptracker-app/ptracker/internal/router"
	"github.com/ptracker-app/ptracker/internal/shoppinglist"
	"github.com/ptracker-app/ptracker/internal/suggester"
)

type listStore interface {
	LoadList(ctx context.Context, email string) (*models.ShoppingList, bool, error)
	SaveList(ctx context.Context, email string, list *models.ShoppingList) error
	Ping(ctx context.Context) error
	Close() error
}

// App holds the configuration, both storage backends, the background
// suggester and the assembled HTTP handler.
type App struct {
	cfg           *config.Config
	db            *postgresdb.PostgresDB
	lists         listStore
	suggester     *suggester.Suggester
	stopSuggester context.CancelFunc
	httpHandler   http.Handler
}

// New initializes the application:
//   - loading configuration
//   - initializing logger
//   - connecting to PostgreSQL and running migrations
//   - selecting and setting up the list document store
//   - setting up the background label suggester (when a classifier is
//     configured)
//   - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if app.cfg.DatabaseDSN == "" {
		return nil, errors.New("a PostgreSQL DSN is required (flag -d or env DATABASE_DSN)")
	}

	app.db, err = postgresdb.New(
		context.Background(),
		app.cfg.DatabaseDSN,
		app.cfg.DBConnectionTimeout,
		app.cfg.MigrationsDir,
	)
	if err != nil {
		return nil, err
	}

	app.lists, err = getListStore(app.cfg)
	if err != nil {
		return nil, err
	}

	authCookieSigningSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.AuthCookieSigningSecretKey)
	if err != nil {
		return nil, err
	}

	var galleryService *gallery.Service
	if sg := app.setupSuggester(); sg != nil {
		galleryService = gallery.New(app.db, sg)
	} else {
		galleryService = gallery.New(app.db, nil)
	}

	app.httpHandler = router.New(
		galleryService,
		accounts.New(app.db),
		shoppinglist.New(app.lists, app.cfg.DefaultListName),
		auth.New(
			app.cfg.AuthCookieName,
			authCookieSigningSecretKey,
			app.cfg.SessionTTL,
		),
		app.db,
	)

	return app, nil
}

// setupSuggester starts the background suggester when a classifier URL is
// configured. Returns nil otherwise, which disables label suggestion.
func (a *App) setupSuggester() *suggester.Suggester {
	if a.cfg.ClassifierURL == "" {
		return nil
	}

	a.suggester = suggester.New(
		a.db,
		classifier.New(a.cfg.ClassifierURL, a.cfg.ClassifierTimeout),
		a.cfg.SuggesterQueueCapacity,
		a.cfg.SuggesterFlushInterval,
	)

	suggesterRunCtx, stopSuggester := context.WithCancel(context.Background())
	a.stopSuggester = stopSuggester

	a.suggester.Run(suggesterRunCtx)
	a.suggester.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `app.suggester.ListenErrors()`:", zap.Error(err))
	})

	return a.suggester
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storages and exiting...")
		if a.stopSuggester != nil {
			a.stopSuggester()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		if err := a.lists.Close(); err != nil {
			logger.Log.Errorln("list store close error:", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getListStore(cfg *config.Config) (listStore, error) {
	if cfg.RedisAddr != "" {
		return listdb.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	return listfiledb.New(cfg.ListStoragePath)
}
