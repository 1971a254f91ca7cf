// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxserver serves the rate-quote endpoint that storefx clients poll.
//
// GET /rates?base=<CODE> (also served at /api/exchange-rates/) responds with:
//
//	{"success": true, "data": {"base": "EUR", "rates": {...}, "timestamp": "...", "fallback": false}}
//	{"success": false, "error": "..."}
//
// Upstream rates are cached per base for a TTL, and concurrent misses for one
// base share one upstream call. When the upstream fails, the fallback table is
// served and not cached, so the next request tries the upstream again.
package storefxserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bufdev/storefx/internal/pkg/exchangerateapi"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxfallback"
	"github.com/bufdev/storefx/internal/storefx/storefxrate"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/sync/singleflight"
)

const (
	// defaultCacheTTL is how long upstream rates are cached per base.
	defaultCacheTTL = time.Hour
	// defaultUpstreamTimeout bounds one upstream call.
	defaultUpstreamTimeout = 10 * time.Second
	// shutdownTimeout bounds graceful shutdown in Run.
	shutdownTimeout = 5 * time.Second
)

// HandlerOption is a functional option for configuring the handler.
type HandlerOption func(*handler)

// HandlerWithCacheTTL sets how long upstream rates are cached per base.
func HandlerWithCacheTTL(cacheTTL time.Duration) HandlerOption {
	return func(h *handler) {
		h.cacheTTL = cacheTTL
	}
}

// HandlerWithAllowedOrigins sets the CORS origins allowed to call the handler.
//
// "*" allows every origin. By default no cross-origin requests are allowed.
func HandlerWithAllowedOrigins(allowedOrigins ...string) HandlerOption {
	return func(h *handler) {
		h.allowedOrigins = allowedOrigins
	}
}

// HandlerWithUpstreamTimeout sets the time limit for one upstream call.
func HandlerWithUpstreamTimeout(timeout time.Duration) HandlerOption {
	return func(h *handler) {
		h.upstreamTimeout = timeout
	}
}

// HandlerWithNow sets the function used for cache expiry and timestamps.
func HandlerWithNow(now func() time.Time) HandlerOption {
	return func(h *handler) {
		h.now = now
	}
}

// NewHandler returns the rate-quote HTTP handler backed by the upstream client.
// The logger is required.
func NewHandler(logger *slog.Logger, client exchangerateapi.Client, options ...HandlerOption) http.Handler {
	h := &handler{
		logger:          logger,
		client:          client,
		cacheTTL:        defaultCacheTTL,
		upstreamTimeout: defaultUpstreamTimeout,
		now:             time.Now,
		cache:           make(map[storefxcurrency.Code]cacheEntry),
	}
	for _, option := range options {
		option(h)
	}
	router := mux.NewRouter().StrictSlash(true)
	router.Use(h.logRequests)
	for _, path := range []string{"/rates", "/api/exchange-rates/"} {
		router.Methods(http.MethodGet).Path(path).HandlerFunc(h.handleRates)
	}
	corsOptions := cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
	}
	// cors allows every origin when none are listed; storefx allows none.
	if len(h.allowedOrigins) == 0 {
		corsOptions.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(corsOptions).Handler(router)
}

// Run serves handler on address until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, logger *slog.Logger, address string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errC := make(chan error, 1)
	go func() {
		errC <- httpServer.ListenAndServe()
	}()
	logger.Info("serving exchange rates", "address", address)
	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errC; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// *** PRIVATE ***

type handler struct {
	logger          *slog.Logger
	client          exchangerateapi.Client
	cacheTTL        time.Duration
	allowedOrigins  []string
	upstreamTimeout time.Duration
	now             func() time.Time
	group           singleflight.Group

	// mu guards cache.
	mu    sync.Mutex
	cache map[storefxcurrency.Code]cacheEntry
}

type cacheEntry struct {
	table     *storefxrate.Table
	expiresAt time.Time
}

// ratesResponse is the JSON envelope returned by the rate endpoint.
type ratesResponse struct {
	Success bool       `json:"success"`
	Data    *ratesData `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type ratesData struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	Timestamp time.Time          `json:"timestamp"`
	Fallback  bool               `json:"fallback"`
}

func (h *handler) handleRates(w http.ResponseWriter, r *http.Request) {
	rawBase := r.URL.Query().Get("base")
	if rawBase == "" {
		h.writeJSON(w, http.StatusBadRequest, ratesResponse{Error: "base query parameter is required"})
		return
	}
	base, err := storefxcurrency.Parse(rawBase)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ratesResponse{Error: err.Error()})
		return
	}
	table, err := h.getTable(r.Context(), base)
	if err != nil {
		h.logger.Error("could not build rate table", "base", base, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, ratesResponse{Error: "internal error"})
		return
	}
	rates := make(map[string]float64, len(table.Codes()))
	for code, rate := range table.Rates() {
		rates[code.String()] = rate
	}
	h.writeJSON(w, http.StatusOK, ratesResponse{
		Success: true,
		Data: &ratesData{
			Base:      table.Base().String(),
			Rates:     rates,
			Timestamp: table.FetchedAt(),
			Fallback:  table.IsFallback(),
		},
	})
}

// getTable returns the cached table for base, fetching it on a miss.
func (h *handler) getTable(ctx context.Context, base storefxcurrency.Code) (*storefxrate.Table, error) {
	if table, ok := h.cached(base); ok {
		return table, nil
	}
	// The shared upstream call is not tied to any one request.
	sharedCtx := context.WithoutCancel(ctx)
	value, err, _ := h.group.Do(base.String(), func() (any, error) {
		// Another request may have filled the cache while this one waited to run.
		if table, ok := h.cached(base); ok {
			return table, nil
		}
		table, err := h.fetchUpstream(sharedCtx, base)
		if err != nil {
			h.logger.Warn("upstream exchange rates unavailable, serving fallback", "base", base, "error", err)
			return storefxfallback.Table(base, h.now())
		}
		h.mu.Lock()
		h.cache[base] = cacheEntry{table: table, expiresAt: h.now().Add(h.cacheTTL)}
		h.mu.Unlock()
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*storefxrate.Table), nil
}

func (h *handler) cached(base storefxcurrency.Code) (*storefxrate.Table, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.cache[base]
	if !ok || !h.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.table, true
}

// fetchUpstream fetches the latest upstream rates and restricts them to the supported codes.
func (h *handler) fetchUpstream(ctx context.Context, base storefxcurrency.Code) (*storefxrate.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, h.upstreamTimeout)
	defer cancel()
	latest, err := h.client.GetLatest(ctx, base.String())
	if err != nil {
		return nil, err
	}
	rates := make(map[storefxcurrency.Code]float64, len(storefxcurrency.All()))
	for _, code := range storefxcurrency.All() {
		rate, ok := latest.Rates[code.String()]
		if !ok {
			return nil, fmt.Errorf("%w: upstream has no rate for %s", storefxrate.ErrMalformedTable, code)
		}
		rates[code] = rate
	}
	fetchedAt := latest.UpdatedAt
	if fetchedAt.IsZero() {
		fetchedAt = h.now()
	}
	return storefxrate.NewTable(storefxrate.SourceRemote, base, rates, fetchedAt)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, response ratesResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Debug("could not write response", "error", err)
	}
}

// logRequests logs every request at debug level.
func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := h.now()
		next.ServeHTTP(w, r)
		h.logger.Debug("handled request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery, "duration", h.now().Sub(start))
	})
}
