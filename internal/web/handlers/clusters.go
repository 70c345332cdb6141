package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-moments/internal/composer"
	"github.com/kozaktomas/photo-moments/internal/curator"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

// ClustersHandler serves cluster listing, representative selection and
// perfect-moment composition.
type ClustersHandler struct {
	curator Curator
	log     *logger.Logger
}

// NewClustersHandler creates a new clusters handler
func NewClustersHandler(c Curator, log *logger.Logger) *ClustersHandler {
	return &ClustersHandler{curator: c, log: logger.OrNop(log)}
}

// ClusterSummary is one entry of the cluster list.
type ClusterSummary struct {
	ID             string                      `json:"id"`
	Size           int                         `json:"size"`
	Start          time.Time                   `json:"start"`
	End            time.Time                   `json:"end"`
	Mode           photo.SelectionMode         `json:"mode"`
	Representative photo.ClusterRepresentative `json:"representative"`
}

// ClusterResponse is the detail view of one cluster.
type ClusterResponse struct {
	Cluster        photo.PhotoCluster          `json:"cluster"`
	Representative photo.ClusterRepresentative `json:"representative"`
}

// RepresentativeRequest pins a photo as the representative of a cluster
type RepresentativeRequest struct {
	PhotoID string `json:"photo_id"`
}

// FacesResponse explains the per-person face ranking of a cluster.
type FacesResponse struct {
	ClusterID string                                     `json:"cluster_id"`
	Persons   map[string]photo.PersonFaceQualityAnalysis `json:"persons"`
	Failures  []composer.AnalysisFailure                 `json:"failures,omitempty"`
}

func summarizeCluster(c photo.PhotoCluster, rep photo.ClusterRepresentative) ClusterSummary {
	start, end := c.TimeRange()
	return ClusterSummary{
		ID:             c.ID,
		Size:           c.Size(),
		Start:          start,
		End:            end,
		Mode:           c.Selection.Mode,
		Representative: rep,
	}
}

// List returns every cluster with its representative, chronologically.
func (h *ClustersHandler) List(w http.ResponseWriter, r *http.Request) {
	clusters, reps := h.curator.Clusters()
	out := make([]ClusterSummary, 0, len(clusters))
	for i := range clusters {
		out = append(out, summarizeCluster(clusters[i], reps[i]))
	}

	var analyzedAt *time.Time
	if t := h.curator.AnalyzedAt(); !t.IsZero() {
		analyzedAt = &t
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"clusters":    out,
		"count":       len(out),
		"analyzed_at": analyzedAt,
	})
}

// Moments returns the representatives of important moments, largest first.
func (h *ClustersHandler) Moments(w http.ResponseWriter, r *http.Request) {
	moments := h.curator.ImportantMoments()
	if moments == nil {
		moments = []photo.ClusterRepresentative{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"moments": moments,
		"count":   len(moments),
	})
}

// Get returns one cluster with all its photos.
func (h *ClustersHandler) Get(w http.ResponseWriter, r *http.Request) {
	cluster, rep, err := h.curator.Cluster(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ClusterResponse{Cluster: cluster, Representative: rep})
}

// Recompute reruns automatic selection for a cluster.
func (h *ClustersHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := h.curator.RecomputeRepresentative(r.Context(), id)
	if h.respondMutationError(w, id, err) {
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// SetRepresentative pins a photo of the cluster.
func (h *ClustersHandler) SetRepresentative(w http.ResponseWriter, r *http.Request) {
	var req RepresentativeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.PhotoID == "" {
		respondError(w, http.StatusBadRequest, "photo_id is required")
		return
	}

	id := chi.URLParam(r, "id")
	rep, err := h.curator.SetManualRepresentative(r.Context(), id, req.PhotoID)
	if h.respondMutationError(w, id, err) {
		return
	}
	h.log.Info("representative pinned", "cluster", sanitizeForLog(id), "photo", sanitizeForLog(req.PhotoID))
	respondJSON(w, http.StatusOK, rep)
}

// ResetRepresentative returns a cluster to automatic selection.
func (h *ClustersHandler) ResetRepresentative(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := h.curator.ResetToAutomatic(r.Context(), id)
	if h.respondMutationError(w, id, err) {
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// respondMutationError answers a failed cluster operation and reports whether
// the request is finished. A change that was applied but not saved is not
// final: the caller still sends its result, flagged with a header.
func (h *ClustersHandler) respondMutationError(w http.ResponseWriter, id string, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, curator.ErrNotSaved) {
		h.log.Warn("cluster change was not saved", "cluster", sanitizeForLog(id), "error", err)
		w.Header().Set("X-Persist-Error", err.Error())
		return false
	}
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.log.Error("cluster update failed", "cluster", sanitizeForLog(id), "error", err)
	}
	respondError(w, status, err.Error())
	return true
}

// Faces ranks the faces of every person in the cluster.
func (h *ClustersHandler) Faces(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	persons, failures, err := h.curator.FaceAnalysis(r.Context(), id)
	if err != nil {
		h.respondMutationError(w, id, err)
		return
	}
	if persons == nil {
		persons = map[string]photo.PersonFaceQualityAnalysis{}
	}
	respondJSON(w, http.StatusOK, FacesResponse{ClusterID: id, Persons: persons, Failures: failures})
}

// Compose builds a perfect moment for the cluster. With ?format=jpeg a
// composed result is returned as the image itself; any other outcome is
// answered with its JSON description and status 409.
func (h *ClustersHandler) Compose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outcome, err := h.curator.ComposePerfectMoment(r.Context(), id)
	if err != nil {
		h.respondMutationError(w, id, err)
		return
	}

	h.log.Info("composition finished", "cluster", sanitizeForLog(id), "status", string(outcome.Status),
		"reason", string(outcome.Reason))

	if r.URL.Query().Get("format") != "jpeg" {
		respondJSON(w, http.StatusOK, outcome)
		return
	}
	if outcome.Status != composer.StatusComposed || outcome.Result == nil || len(outcome.Result.Image) == 0 {
		respondJSON(w, http.StatusConflict, outcome)
		return
	}

	res := outcome.Result
	contentType := res.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Composite-ID", res.ID)
	w.Header().Set("Content-Disposition", `attachment; filename="`+photo.CompositeFileName(res.ID)+`"`)
	w.Header().Set("X-Base-Photo", res.Origin.BasePhotoID)
	if outcome.QualityWarning {
		w.Header().Set("X-Quality-Warning", "true")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Image)
}
