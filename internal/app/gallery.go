package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samvad-hq/picture-gallery/internal/config"
	"github.com/samvad-hq/picture-gallery/internal/hooks"
	"github.com/samvad-hq/picture-gallery/internal/logger"
	"github.com/samvad-hq/picture-gallery/internal/query"
	"github.com/samvad-hq/picture-gallery/internal/site"
	"github.com/samvad-hq/picture-gallery/internal/storage"
	"github.com/samvad-hq/picture-gallery/internal/web"
	"github.com/samvad-hq/picture-gallery/pkg/httpclient"
	"github.com/samvad-hq/picture-gallery/pkg/pictures"
)

// Gallery is the web front end runtime. It owns the query cache and its
// persistent store and serves pages until shut down.
type Gallery struct {
	cfg     *config.Config
	log     logger.Logger
	store   storage.Store
	queries *query.Client
	server  *web.Server
}

// NewGallery wires storage, the API client, the query cache and the web
// server from cfg.
func NewGallery(ctx context.Context, cfg *config.Config, log logger.Logger) (*Gallery, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st, err := site.Load(cfg.SiteFile)
	if err != nil {
		return nil, fmt.Errorf("load site file: %w", err)
	}
	log.InfoObj("site loaded", "site_meta", map[string]any{
		"file":         cfg.SiteFile,
		"title":        st.Title,
		"placeholders": len(st.Placeholders),
	})

	store, err := storage.NewStore(cfg.StorageType, storage.Options{
		Path:            cfg.BBoltPath,
		RedisAddr:       cfg.RedisAddr,
		RedisDB:         cfg.RedisDB,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"redis_addr":               cfg.RedisAddr,
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	api := httpclient.New(cfg.APIBaseURL, httpclient.WithLogger(log))
	queries := query.New(store, log,
		query.WithStaleTime(cfg.CacheStaleTime),
		query.WithGCTime(cfg.CacheGCTime),
	)
	pictureHooks := hooks.New(pictures.New(api), queries, log)

	var pageOpts []query.Option
	if cfg.RenderWait > 0 {
		pageOpts = append(pageOpts, query.WithWait(cfg.RenderWait))
	}

	server, err := web.New(pictureHooks, st, log,
		web.WithAddr(cfg.ListenAddr),
		web.WithStaticDir(cfg.StaticDir),
		web.WithShutdownTimeout(cfg.ShutdownTimeout),
		web.WithQueryOptions(pageOpts...),
	)
	if err != nil {
		queries.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init web server: %w", err)
	}

	log.InfoObj("gallery initialized", "gallery_config", map[string]any{
		"api_base_url":        cfg.APIBaseURL,
		"cache_stale_seconds": int(cfg.CacheStaleTime.Seconds()),
		"cache_gc_seconds":    int(cfg.CacheGCTime.Seconds()),
		"render_wait_ms":      cfg.RenderWait.Milliseconds(),
	})

	return &Gallery{
		cfg:     cfg,
		log:     log,
		store:   store,
		queries: queries,
		server:  server,
	}, nil
}

// Handler exposes the routed pages, mainly for tests.
func (g *Gallery) Handler() http.Handler { return g.server.Handler() }

// Run serves pages until ctx is cancelled, then releases the cache and store.
func (g *Gallery) Run(ctx context.Context) error {
	if g == nil || g.server == nil {
		return fmt.Errorf("gallery is not initialized")
	}
	defer g.close()

	g.log.InfoObj("gallery starting", "listen_addr", g.cfg.ListenAddr)
	if err := g.server.Run(ctx); err != nil {
		return err
	}
	g.log.InfoObj("gallery stopped", "reason", ctx.Err())
	return nil
}

func (g *Gallery) close() {
	g.queries.Close()
	if g.store == nil {
		return
	}
	if err := g.store.Close(); err != nil {
		g.log.ErrorObj("failed to close storage", "error", err)
	}
}
