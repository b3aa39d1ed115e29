package main

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/owldoor/door-news/internal/config"
	"github.com/owldoor/door-news/internal/elasticsearch"
	"github.com/owldoor/door-news/internal/logger"
)

const feedUnavailable = "news feed is not available yet"

type articleStore interface {
	Health(ctx context.Context) error
	SearchArticles(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
}

func main() {
	_ = godotenv.Load()

	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{log: log, cfg: cfg, store: esClient}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("feed", cfg.FeedPath),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log   *slog.Logger
	cfg   *config.API
	store articleStore
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/feed", s.handleFeed)
	r.Get("/articles", s.handleSearch)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	_, err := os.Stat(s.cfg.FeedPath)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"feed":   err == nil,
	})
}

// handleFeed serves the published artifact as written by the crawler.
func (s *server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	data, err := os.ReadFile(s.cfg.FeedPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("read feed", slog.Any("err", err))
		}
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: feedUnavailable})
		return
	}
	if !json.Valid(data) {
		s.log.Warn("feed is not valid json", slog.String("path", s.cfg.FeedPath))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: feedUnavailable})
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:   strings.TrimSpace(q.Get("q")),
		Keyword: strings.TrimSpace(q.Get("keyword")),
		Source:  strings.TrimSpace(q.Get("source")),
		From:    clampInt(q.Get("from"), 0, 10_000),
		Size:    clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:    strings.TrimSpace(q.Get("sort")),
	}

	result, err := s.store.SearchArticles(ctx, params)
	if err != nil {
		s.log.Error("search articles", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
