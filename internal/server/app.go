// Package server wires the bookshelf components together. It opens the
// database, applies migrations, selects the attachment backend, builds the
// services and runs the HTTP server until a stop signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/bookshelf/internal/logging"
	"github.com/dmitrijs2005/bookshelf/internal/server/attachments"
	"github.com/dmitrijs2005/bookshelf/internal/server/auth"
	"github.com/dmitrijs2005/bookshelf/internal/server/config"
	"github.com/dmitrijs2005/bookshelf/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bookshelf/internal/server/rest"
	"github.com/dmitrijs2005/bookshelf/internal/server/services"
	"github.com/gin-gonic/gin"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *rest.Server
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	ctx := context.Background()

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	store, err := newAttachmentStore(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("attachment store init error: %w", err)
	}
	files := attachments.NewService(store, c.MaxUploadSize)

	tokens := auth.NewJWT(c.SecretKey, c.AccessTokenValidityDuration)
	us := services.NewUserService(db, rm, tokens, auth.NewBcrypt(0))
	bs := services.NewBookService(db, rm, files, logger)

	gin.SetMode(gin.ReleaseMode)
	srv := rest.NewServer(c.EndpointAddrHTTP, logger, rest.Deps{
		Users:  us,
		Books:  bs,
		Files:  files,
		Tokens: tokens,
		DB:     db,
	}, rest.Options{
		MaxUploadSize:   c.MaxUploadSize,
		ShutdownTimeout: c.ShutdownTimeout,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
	})

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

// newAttachmentStore picks the blob backend named by c.StorageBackend.
func newAttachmentStore(ctx context.Context, c *config.Config) (attachments.Store, error) {
	switch c.StorageBackend {
	case config.StorageS3:
		store, err := attachments.NewS3Store(ctx, attachments.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageDisk, "":
		store, err := attachments.NewDiskStore(c.UploadsDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
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
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a stop signal arrives, then waits for
// the HTTP server to drain and closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

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
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
