package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/samvad-hq/picture-gallery/internal/domain"
	"github.com/samvad-hq/picture-gallery/internal/logger"
	"github.com/samvad-hq/picture-gallery/internal/query"
	"github.com/samvad-hq/picture-gallery/internal/site"
)

// Package web serves the gallery pages.

const (
	defaultAddr            = ":3000"
	defaultShutdownTimeout = 10 * time.Second
	loadingRefreshSeconds  = 1
)

// PictureHooks is the data layer the pages render from.
type PictureHooks interface {
	All(ctx context.Context, opts ...query.Option) query.State[[]domain.Picture]
	Detail(ctx context.Context, id string, opts ...query.Option) query.State[domain.Picture]
	Refresh(ctx context.Context) int
}

// Server renders the layout shell, home, gallery and picture pages.
type Server struct {
	hooks PictureHooks
	site  site.Site
	log   logger.Logger
	views *views

	addr            string
	staticDir       string
	shutdownTimeout time.Duration
	queryOpts       []query.Option

	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address used by Run.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr = strings.TrimSpace(addr); addr != "" {
			s.addr = addr
		}
	}
}

// WithStaticDir serves placeholder images under /images/ from dir.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = strings.TrimSpace(dir) }
}

// WithShutdownTimeout bounds graceful shutdown in Run.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithQueryOptions applies opts to every query a page runs.
func WithQueryOptions(opts ...query.Option) Option {
	return func(s *Server) { s.queryOpts = append(s.queryOpts, opts...) }
}

// New builds the server and its routes.
func New(hooks PictureHooks, st site.Site, log logger.Logger, opts ...Option) (*Server, error) {
	if hooks == nil {
		return nil, errors.New("picture hooks must not be nil")
	}
	v, err := parseViews()
	if err != nil {
		return nil, err
	}

	s := &Server{
		hooks:           hooks,
		site:            st,
		log:             logger.Ensure(log),
		views:           v,
		addr:            defaultAddr,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/pictures", s.handlePictures).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/pictures/{id}", s.handlePicture).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	if s.staticDir != "" {
		r.PathPrefix("/images/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
	return r
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("gallery server listening", "server_meta", map[string]any{
			"addr":       s.addr,
			"static_dir": s.staticDir,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.log.InfoObj("gallery server shutting down", "reason", ctx.Err())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
