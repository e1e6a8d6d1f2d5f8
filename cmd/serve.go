package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/addrmap/internal/config"
	"github.com/sells-group/addrmap/pkg/geocode"
)

const maxBodyBytes = 8 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP geocoding API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Server.Port = resolvePort(servePort, cfg.Server.Port)
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := newClient(cfg.Geocode.PoolSize)
		defer client.Close() //nolint:errcheck

		if err := client.Ping(ctx); err != nil {
			return eris.Wrap(err, "serve: open index")
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		s := newServer(client, cfg.Server, reg)

		return startServer(ctx, s.routes(cfg.Server.CORSOrigins), cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort returns the flag value if set, otherwise the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

type server struct {
	client   *geocode.AddrMapClient
	geocoder *geocode.CascadeClient
	cache    *geocode.LRUCache
	limiter  *rate.Limiter
	maxBatch int
	reg      *prometheus.Registry
	metrics  *metrics
}

func newServer(client *geocode.AddrMapClient, sc config.ServerConfig, reg *prometheus.Registry) *server {
	s := &server{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(sc.RateLimit), sc.RateBurst),
		maxBatch: sc.MaxBatch,
		reg:      reg,
	}

	opts := []geocode.CascadeOption{geocode.WithBatchConcurrency(client.PoolSize())}
	if sc.CacheEntries > 0 {
		s.cache = geocode.NewLRUCache(sc.CacheEntries, time.Duration(sc.CacheTTLMinutes)*time.Minute)
		opts = append(opts, geocode.WithCache(s.cache))
	}
	s.geocoder = geocode.NewCascadeClient([]geocode.Provider{client}, opts...)
	s.metrics = newMetrics(reg, s.cache)
	return s
}

func (s *server) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/geocode", s.handleGeocode)
		r.Post("/geocode/batch", s.handleBatch)
	})
	return r
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	body := map[string]any{
		"status": "ok",
		"index":  s.client.Path(),
	}
	if s.cache != nil {
		body["cache"] = s.cache.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	res, err := s.geocoder.Geocode(r.Context(), geocode.AddressInput{Line: q})
	s.metrics.observe(res, err)
	if err != nil {
		zap.L().Error("serve: geocode failed", zap.String("q", q), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "geocode failed")
		return
	}
	if !res.Matched {
		writeJSON(w, http.StatusNotFound, map[string]bool{"matched": false})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type batchItem struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var items []batchItem
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "at least one address is required")
		return
	}
	if s.maxBatch > 0 && len(items) > s.maxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("batch exceeds %d addresses", s.maxBatch))
		return
	}

	addrs := make([]geocode.AddressInput, len(items))
	for i, it := range items {
		addrs[i] = geocode.AddressInput{ID: it.ID, Line: it.Address}
	}

	results, err := s.geocoder.BatchGeocode(r.Context(), addrs)
	if err != nil {
		zap.L().Warn("serve: batch interrupted", zap.Int("count", len(addrs)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "batch interrupted")
		return
	}
	for i := range results {
		s.metrics.observe(&results[i], nil)
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// startServer serves handler on port until ctx is done, then shuts down
// gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}
