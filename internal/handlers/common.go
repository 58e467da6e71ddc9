package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lehigh-university-libraries/gacha/internal/backend"
	"github.com/lehigh-university-libraries/gacha/internal/storage"
)

var (
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gacha",
		Name:      "sessions_active",
		Help:      "Number of headless widget sessions.",
	})
	metricBridgeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gacha",
		Name:      "bridge_requests_total",
		Help:      "Bridge endpoint requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
)

// Config holds the settings for widgets created through the session API
type Config struct {
	MinAnimation  time.Duration
	BridgeTimeout time.Duration
	// MaxSessions caps live widget sessions; zero means no cap
	MaxSessions int
}

type Handler struct {
	ctx          context.Context
	folder       *backend.Folder
	sessionStore *storage.SessionStore
	cfg          Config
}

// New creates the handler set. Widgets created through the session API live
// until they are deleted, Close is called, or ctx is done.
func New(ctx context.Context, folder *backend.Folder, cfg Config) *Handler {
	return &Handler{
		ctx:          ctx,
		folder:       folder,
		sessionStore: storage.New(),
		cfg:          cfg,
	}
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthcheck", h.HandleHealthcheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/getGachaData", h.HandleGetGachaData)
		r.Get("/getItemAsset", h.HandleGetItemAsset)
		r.Get("/folders", h.HandleFolders)

		r.Post("/sessions", h.HandleCreateSession)
		r.Get("/sessions", h.HandleSessions)
		r.Get("/sessions/{sessionID}", h.HandleSessionDetail)
		r.Delete("/sessions/{sessionID}", h.HandleDeleteSession)
		r.Post("/sessions/{sessionID}/pull", h.HandlePull)
	})

	r.Handle("/gacha_data/*", h.HandleStatic())
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, "Not found", http.StatusNotFound)
	})

	return r
}

// Close stops every session widget
func (h *Handler) Close() {
	for _, s := range h.sessionStore.GetAll() {
		if _, ok := h.sessionStore.Delete(s.ID); ok {
			s.Widget.Close()
		}
	}
	metricActiveSessions.Set(0)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("Request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration_ms", time.Since(start).Milliseconds())
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug(message, "status", code)
	}
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*storage.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}
