package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lehigh-university-libraries/gacha/internal/backend"
	"github.com/lehigh-university-libraries/gacha/internal/present"
	"github.com/lehigh-university-libraries/gacha/internal/pull"
	"github.com/lehigh-university-libraries/gacha/internal/storage"
	"github.com/lehigh-university-libraries/gacha/internal/widget"
)

type sessionResponse struct {
	ID        string            `json:"id"`
	Folder    string            `json:"folder"`
	CreatedAt time.Time         `json:"created_at"`
	Status    widget.Status     `json:"status"`
	View      present.ViewState `json:"view"`
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Folder string `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Folder == "" {
		request.Folder = backend.DefaultFolder
	}

	view := present.NewSnapshot()
	session := &storage.Session{
		ID:        storage.NewID(),
		Folder:    request.Folder,
		CreatedAt: time.Now(),
		View:      view,
		Widget: widget.New(widget.Config{
			Folder:        request.Folder,
			MinAnimation:  h.cfg.MinAnimation,
			BridgeTimeout: h.cfg.BridgeTimeout,
		}, widget.Deps{
			Backend: h.folder,
			View:    view,
		}),
	}
	if !h.sessionStore.Add(session, h.cfg.MaxSessions) {
		session.Widget.Close()
		slog.Warn("Session limit reached", "limit", h.cfg.MaxSessions)
		h.writeError(w, "Too many sessions", http.StatusTooManyRequests)
		return
	}
	session.Widget.Start(h.ctx)
	metricActiveSessions.Set(float64(h.sessionStore.Len()))
	slog.Info("Session created", "session_id", session.ID, "folder", session.Folder)

	h.writeSession(w, r, session, http.StatusCreated)
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	sessionList := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp, err := h.describe(r, session)
		if err != nil {
			continue
		}
		sessionList = append(sessionList, resp)
	}
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}
	h.writeSession(w, r, session, http.StatusOK)
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionStore.Delete(chi.URLParam(r, "sessionID"))
	if !ok {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	session.Widget.Close()
	metricActiveSessions.Set(float64(h.sessionStore.Len()))
	slog.Info("Session deleted", "session_id", session.ID)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandlePull(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}

	err := session.Widget.Pull(r.Context())
	switch {
	case errors.Is(err, pull.ErrBusy), errors.Is(err, pull.ErrNotReady):
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, widget.ErrClosed):
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	case err != nil:
		h.writeError(w, "Pull failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeSession(w, r, session, http.StatusAccepted)
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, session *storage.Session, code int) {
	resp, err := h.describe(r, session)
	if err != nil {
		h.writeError(w, "Unable to read session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSONStatus(w, code, resp)
}

func (h *Handler) describe(r *http.Request, session *storage.Session) (sessionResponse, error) {
	status, err := session.Widget.Status(r.Context())
	if err != nil {
		return sessionResponse{}, err
	}
	return sessionResponse{
		ID:        session.ID,
		Folder:    session.Folder,
		CreatedAt: session.CreatedAt,
		Status:    status,
		View:      session.View.State(),
	}, nil
}
