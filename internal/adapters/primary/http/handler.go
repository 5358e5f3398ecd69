package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/vibin/deepsearch-chat/config"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
	"github.com/vibin/deepsearch-chat/internal/core/services"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

const (
	apiVersion          = "1.0.0"
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// SearchCache is the cache control surface of the aggregator
type SearchCache interface {
	ClearCache()
	SourceNames() []string
}

// Handler is the HTTP handler for the chat application
type Handler struct {
	service   *services.TurnService
	cache     SearchCache
	searchLog ports.SearchLogPort
	logger    logger.Logger
	router    *chi.Mux
	config    *config.Config
	upgrader  websocket.Upgrader
	now       func() time.Time
}

// NewHandler creates a new HTTP handler. cache and searchLog may be nil when
// web search or the search log is disabled.
func NewHandler(service *services.TurnService, cache SearchCache, searchLog ports.SearchLogPort, cfg *config.Config, log logger.Logger) *Handler {
	h := &Handler{
		service:   service,
		cache:     cache,
		searchLog: searchLog,
		logger:    log,
		config:    cfg,
		now:       time.Now,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}

	h.setupRouter()
	return h
}

// setupRouter sets up the Chi router with middleware and routes
func (h *Handler) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(h.logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	// The socket lives outside the request timeout
	r.Get("/ws", h.ServeSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(time.Duration(max(h.config.LLM.Gateway.TimeoutSeconds, 60)) * time.Second))

		r.Route("/api", func(r chi.Router) {
			r.Get("/", h.APIInfo)

			r.Route("/chat", func(r chi.Router) {
				r.Post("/message", h.SendMessage)
				r.Get("/models", h.GetModels)
				r.Post("/validate", h.ValidateConnection)
			})

			r.Route("/search", func(r chi.Router) {
				r.Get("/", h.DeepSearch)
				r.Get("/quick", h.QuickSearch)
				r.Get("/history", h.SearchHistory)
				r.Delete("/cache", h.ClearSearchCache)
			})
		})
	})

	h.router = r
}

// ServeHTTP implements the http.Handler interface
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Health handles the health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// APIInfo describes the API
func (h *Handler) APIInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"message": "DeepSearch Chat API",
		"version": apiVersion,
		"endpoints": map[string]string{
			"chat":   "/api/chat",
			"search": "/api/search",
			"socket": "/ws",
			"health": "/health",
		},
	}
	if h.cache != nil {
		info["sources"] = h.cache.SourceNames()
	}
	h.respondWithJSON(w, http.StatusOK, info)
}

// SendMessage handles a non-streamed chat request
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	reply, err := h.service.SendMessage(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	h.respondWithData(w, http.StatusOK, reply)
}

// GetModels lists the available models
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	h.respondWithData(w, http.StatusOK, domain.ModelsPayload{Models: h.service.Models()})
}

// ValidateConnection checks the generation gateway
func (h *Handler) ValidateConnection(w http.ResponseWriter, r *http.Request) {
	err := h.service.ValidateConnection(r.Context())
	if err != nil {
		h.logger.Warn("Gateway validation failed", "error", err)
	}
	h.respondWithData(w, http.StatusOK, map[string]any{
		"connected": err == nil,
		"baseUrl":   h.config.LLM.Gateway.BaseURL,
	})
}

// DeepSearch runs an expert aggregated search
func (h *Handler) DeepSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.respondWithError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	if !h.service.WebSearchEnabled() {
		h.respondWithError(w, http.StatusServiceUnavailable, services.ErrSearchDisabled.Error())
		return
	}

	resp := h.service.Search(r.Context(), domain.ManualSearchRequest{
		Query:      query,
		MaxResults: intParam(r, "max", domain.DefaultDeepMaxResults),
	})
	h.respondWithData(w, http.StatusOK, resp)
}

// QuickSearch runs the lightweight search
func (h *Handler) QuickSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.respondWithError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	resp, err := h.service.QuickSearch(r.Context(), query, intParam(r, "max", domain.DefaultQuickMaxResults))
	if err != nil {
		h.respondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.respondWithData(w, http.StatusOK, resp)
}

// SearchHistory lists recently executed searches
func (h *Handler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	if h.searchLog == nil {
		h.respondWithData(w, http.StatusOK, map[string]any{"searches": []domain.SearchLogEntry{}})
		return
	}

	limit := min(intParam(r, "limit", defaultHistoryLimit), maxHistoryLimit)
	entries, err := h.searchLog.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read search history", "error", err)
		h.respondWithError(w, http.StatusInternalServerError, "Failed to read search history")
		return
	}
	h.respondWithData(w, http.StatusOK, map[string]any{"searches": entries})
}

// ClearSearchCache drops every cached search response
func (h *Handler) ClearSearchCache(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		h.cache.ClearCache()
	}
	h.respondWithData(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.Server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// intParam reads a positive integer query parameter
func intParam(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// respondWithError sends an error response
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]any{"success": false, "error": message})
}

// respondWithData wraps payload in the success envelope
func (h *Handler) respondWithData(w http.ResponseWriter, code int, payload any) {
	h.respondWithJSON(w, code, map[string]any{"success": true, "data": payload})
}

// respondWithJSON sends a JSON response
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

type loggerKey struct{}

// LoggerFromContext returns the request scoped logger set by LoggerMiddleware
func LoggerFromContext(ctx context.Context, fallback logger.Logger) logger.Logger {
	if log, ok := ctx.Value(loggerKey{}).(logger.Logger); ok {
		return log
	}
	return fallback
}

// LoggerMiddleware is a middleware that logs HTTP requests
func LoggerMiddleware(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLog := log.WithField("request_id", middleware.GetReqID(r.Context()))
			ctx := context.WithValue(r.Context(), loggerKey{}, reqLog)

			defer func() {
				reqLog.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
				)
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
