package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-moments/internal/curator"
	"github.com/kozaktomas/photo-moments/internal/logger"
)

// AnalyzeHandler runs library analyses as background jobs.
type AnalyzeHandler struct {
	curator    Curator
	source     curator.PhotoSource
	jobManager *JobManager
	log        *logger.Logger
}

// NewAnalyzeHandler creates a new analyze handler. source may be nil, in
// which case analyses are refused.
func NewAnalyzeHandler(c Curator, source curator.PhotoSource, jm *JobManager, log *logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		curator:    c,
		source:     source,
		jobManager: jm,
		log:        logger.OrNop(log),
	}
}

// AnalyzeRequest represents an analysis start request
type AnalyzeRequest struct {
	// Force reclusters even when the stored clusters are still fresh.
	Force bool `json:"force"`
}

// Start starts a new analysis job
func (h *AnalyzeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if h.source == nil {
		respondError(w, http.StatusServiceUnavailable, "no photo source configured")
		return
	}

	job, created := h.jobManager.CreateJob(uuid.New().String(), req.Force)
	if !created {
		respondJSON(w, http.StatusConflict, map[string]string{
			"error":  "an analysis is already running",
			"job_id": job.ID(),
		})
		return
	}

	go h.runAnalysisJob(job)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID(),
		"force":  req.Force,
		"status": string(JobStatusPending),
	})
}

// Status returns the status of an analysis job
func (h *AnalyzeHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.View())
}

// Events streams job events via SSE
func (h *AnalyzeHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job.(*AnalysisJob).View()
		},
	)
}

// Cancel cancels an analysis job
func (h *AnalyzeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// runAnalysisJob runs the analysis in the background
func (h *AnalyzeHandler) runAnalysisJob(job *AnalysisJob) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !job.start(cancel) {
		return
	}
	h.log.Info("analysis job started", "job", job.ID(), "force", job.force)

	var (
		result *curator.Result
		ran    = true
		err    error
	)
	if job.force {
		result, err = h.curator.Run(ctx, h.source, job.setProgress)
	} else {
		result, ran, err = h.curator.LoadOrRecluster(ctx, h.source, job.setProgress)
	}
	if err != nil {
		if ctx.Err() != nil {
			h.log.Info("analysis job cancelled", "job", job.ID())
			return
		}
		h.log.Error("analysis job failed", "job", job.ID(), "error", err)
		job.fail(fmt.Sprintf("analysis failed: %v", err))
		return
	}

	summary := summarize(result, !ran)
	if result.PersistError != nil {
		h.log.Warn("analysis results were not saved", "job", job.ID(), "error", result.PersistError)
	}
	h.log.Info("analysis job completed", "job", job.ID(), "clusters", summary.Clusters,
		"photos", summary.Photos, "reused", summary.Reused)
	job.complete(summary)
}

func summarize(result *curator.Result, reused bool) *AnalysisSummary {
	summary := &AnalysisSummary{
		Reused:      reused,
		Clusters:    len(result.Clusters),
		Screenshots: result.Screenshots,
		Unscored:    result.Unscored,
		Duration:    result.Duration,
	}
	for _, c := range result.Clusters {
		summary.Photos += c.Size()
	}
	for _, rep := range result.Representatives {
		if rep.IsImportantMoment {
			summary.Important++
		}
	}
	if result.PersistError != nil {
		summary.PersistError = result.PersistError.Error()
	}
	return summary
}
