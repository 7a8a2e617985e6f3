package gateway

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/cheese-relay/pkg/relaydto"
)

// NewRouter wires the HTTP surface: room creation, the websocket endpoint
// and a health probe.
func NewRouter(h *Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(h.origins))

	r.Post("/room", h.handleCreateRoom)
	r.Get("/ws", h.ServeWS)
	r.Get("/healthz", h.handleHealth)

	return r
}

func (h *Hub) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	code, err := h.CreateRoom(r.Context())
	if err != nil {
		h.logger.Warn("room_create_error", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "room service unavailable")
		return
	}
	respondJSON(w, http.StatusOK, relaydto.CreateRoomResponse{Code: code})
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, relaydto.Health{Status: "stopped"})
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// cors answers preflight requests and echoes allowed origins. With no
// patterns configured every origin is allowed.
func cors(patterns []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(patterns, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed matches the origin host against path.Match patterns, the
// same form websocket.AcceptOptions.OriginPatterns uses.
func originAllowed(patterns []string, origin string) bool {
	if len(patterns) == 0 {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, p := range patterns {
		if ok, _ := path.Match(strings.ToLower(p), host); ok {
			return true
		}
	}
	return false
}
