package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/recommend"
)

// LibraryHandler serves library-wide views: recommendations and status.
type LibraryHandler struct {
	curator    Curator
	jobManager *JobManager
	log        *logger.Logger
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(c Curator, jm *JobManager, log *logger.Logger) *LibraryHandler {
	return &LibraryHandler{curator: c, jobManager: jm, log: logger.OrNop(log)}
}

// RecommendationsResponse lists recommended cluster winners.
type RecommendationsResponse struct {
	Policy recommend.Policy `json:"policy"`
	Count  int              `json:"count"`
	Photos []photo.Photo    `json:"photos"`
}

// StatusResponse tells a client whether to show onboarding or results.
type StatusResponse struct {
	HasEverAnalyzed bool       `json:"has_ever_analyzed"`
	AnalyzedAt      *time.Time `json:"analyzed_at,omitempty"`
	Clusters        int        `json:"clusters"`
	ActiveJob       *JobView   `json:"active_job,omitempty"`
}

// Recommendations returns up to count cluster winners under the given policy.
func (h *LibraryHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	count := constants.DefaultRecommendationCount
	if s := r.URL.Query().Get("count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
		count = min(n, constants.MaxRecommendationCount)
	}

	policy, err := recommend.ParsePolicy(r.URL.Query().Get("policy"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	photos := h.curator.Recommendations(count, policy)
	if photos == nil {
		photos = []photo.Photo{}
	}
	respondJSON(w, http.StatusOK, RecommendationsResponse{Policy: policy, Count: len(photos), Photos: photos})
}

// Status reports whether the library was ever analyzed.
func (h *LibraryHandler) Status(w http.ResponseWriter, r *http.Request) {
	analyzed, err := h.curator.HasEverAnalyzed(r.Context())
	if err != nil {
		h.log.Error("could not read analysis status", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read analysis status")
		return
	}

	clusters, _ := h.curator.Clusters()
	resp := StatusResponse{HasEverAnalyzed: analyzed, Clusters: len(clusters)}
	if t := h.curator.AnalyzedAt(); !t.IsZero() {
		resp.AnalyzedAt = &t
	}
	if job := h.jobManager.ActiveJob(); job != nil {
		view := job.View()
		resp.ActiveJob = &view
	}
	respondJSON(w, http.StatusOK, resp)
}
