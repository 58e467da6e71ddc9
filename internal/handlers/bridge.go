package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/gacha/internal/backend"
	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// The bridge endpoints always answer 200 and report failures in the
// envelope, so widgets only ever see success or a message.

func (h *Handler) HandleGetGachaData(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")

	payload, err := h.folder.FetchCatalog(r.Context(), folder)
	if err != nil {
		slog.Warn("Catalog request failed", "folder", folder, "err", err)
		metricBridgeRequests.WithLabelValues("getGachaData", "failure").Inc()
		h.writeJSON(w, backend.CatalogResponse{Error: err.Error()})
		return
	}

	metricBridgeRequests.WithLabelValues("getGachaData", "success").Inc()
	h.writeJSON(w, backend.CatalogResponse{Success: true, CatalogPayload: &payload})
}

func (h *Handler) HandleGetItemAsset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	folder := q.Get("folder")
	ref := models.AssetRef{Image: q.Get("image"), Description: q.Get("description")}

	if ref.Image == "" || ref.Description == "" {
		metricBridgeRequests.WithLabelValues("getItemAsset", "failure").Inc()
		h.writeJSON(w, backend.AssetResponse{Error: "Missing parameters"})
		return
	}

	payload, err := h.folder.FetchAsset(r.Context(), folder, ref)
	if err != nil {
		slog.Warn("Asset request failed", "folder", folder, "image", ref.Image, "description", ref.Description, "err", err)
		metricBridgeRequests.WithLabelValues("getItemAsset", "failure").Inc()
		h.writeJSON(w, backend.AssetResponse{Error: err.Error()})
		return
	}

	metricBridgeRequests.WithLabelValues("getItemAsset", "success").Inc()
	h.writeJSON(w, backend.AssetResponse{Success: true, AssetPayload: &payload})
}

func (h *Handler) HandleFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.folder.Folders()
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if folders == nil {
		folders = []string{}
	}
	h.writeJSON(w, folders)
}
