// Package rest exposes the bookshelf services over HTTP using gin.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/dbx"
	"github.com/dmitrijs2005/bookshelf/internal/logging"
	"github.com/dmitrijs2005/bookshelf/internal/server/attachments"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/dmitrijs2005/bookshelf/internal/server/services"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the max upload size for form fields
// and multipart boundaries.
const multipartOverhead = 1 << 20

// maxJSONBody caps bodies on routes that do not accept files.
const maxJSONBody = 1 << 20

type UserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

type BookService interface {
	Create(ctx context.Context, userID int64, in models.BookInput, up *attachments.Upload) (*models.Book, error)
	List(ctx context.Context) ([]models.Book, error)
	Get(ctx context.Context, id int64) (*models.Book, error)
	Update(ctx context.Context, userID, id int64, in models.BookInput) error
	Delete(ctx context.Context, userID, id int64) error
}

// AttachmentOpener serves stored book images.
type AttachmentOpener interface {
	Open(ctx context.Context, name string) (*attachments.Object, error)
}

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// Deps groups the collaborators a Server dispatches to.
type Deps struct {
	Users  UserService
	Books  BookService
	Files  AttachmentOpener
	Tokens TokenVerifier
	DB     dbx.Pinger
}

// Options tunes limits and timeouts of the HTTP server.
type Options struct {
	MaxUploadSize     int64
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

type Server struct {
	address string
	logger  logging.Logger
	deps    Deps
	opts    Options
	engine  *gin.Engine
}

func NewServer(a string, l logging.Logger, d Deps, o Options) *Server {
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	if o.ReadHeaderTimeout <= 0 {
		o.ReadHeaderTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = time.Minute
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = time.Minute
	}

	s := &Server{
		address: a,
		logger:  l.With("module", "http_server"),
		deps:    d,
		opts:    o,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.requestLogger(), s.recovery())

	r.GET("/health", s.health)
	r.POST("/register", s.limitBody(maxJSONBody), s.register)
	r.POST("/login", s.limitBody(maxJSONBody), s.login)
	r.GET("/books", s.listBooks)
	r.GET("/books/:id", s.getBook)
	r.GET("/uploads/:name", s.serveUpload)

	authed := r.Group("/", s.requireAuth())
	authed.POST("/books", s.limitBody(s.opts.MaxUploadSize+multipartOverhead), s.createBook)
	authed.PUT("/books/:id", s.limitBody(maxJSONBody), s.updateBook)
	authed.DELETE("/books/:id", s.deleteBook)

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully and
// waits for in-flight requests up to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}
