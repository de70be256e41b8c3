// Package http provides the JSON API over the session-scoped statement
// engine.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/cache"
	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/services"
	"tally/internal/store"
)

type Server struct {
	http.Server

	registry *store.Registry
	importer *services.ImportService

	maxUploadBytes int64
	rateLimiter    *ratelimit.Limiter

	// Query result caches keyed by session id + store version + filter, so
	// any mutation changes the key and stale entries simply age out.
	summaryCache *cache.LRU[core.Summary]
	seriesCache  *cache.LRU[[]core.DatePoint]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg config.Config, registry *store.Registry, importer *services.ImportService) *Server {
	mux := http.NewServeMux()
	detector := security.NewDetector()

	s := &Server{
		registry:       registry,
		importer:       importer,
		maxUploadBytes: cfg.MaxUploadSizeBytes,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.UploadsPerMinute,
		}),
		summaryCache: cache.NewLRU[core.Summary](200, 5*time.Minute),
		seriesCache:  cache.NewLRU[[]core.DatePoint](200, 5*time.Minute),
	}

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP)
	mux.Handle("POST /api/upload", limited(http.HandlerFunc(s.handleUpload)))
	mux.HandleFunc("GET /api/sources", s.handleListSources)
	mux.HandleFunc("DELETE /api/sources", s.handleRemoveSource)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("POST /api/categorize", s.handleCategorize)
	mux.HandleFunc("PUT /api/transactions/{index}/category", s.handleSetCategory)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/timeseries", s.handleTimeSeries)
	mux.HandleFunc("DELETE /api/session", s.handleDropSession)
	mux.HandleFunc("GET /healthz", handleHealth)

	traced := trace.NewMiddleware(detector.ExtractClientIP)
	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           traced.Middleware(security.HeadersMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// CacheJanitor periodically evicts expired cache entries until ctx is done.
func (s *Server) CacheJanitor(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.summaryCache.Janitor(ctx, interval) })
	g.Go(func() error { return s.seriesCache.Janitor(ctx, interval) })
	return g.Wait()
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
