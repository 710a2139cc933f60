package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schedbot/internal/domain"
)

type jobResponse struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	Period         string `json:"period"`
	DueAt          string `json:"due_at"`
	RunAt          string `json:"run_at"`
	AttemptCount   int    `json:"attempt_count"`
	Status         string `json:"status"`
	LastError      string `json:"last_error,omitempty"`
	LeaseExpiresAt string `json:"lease_expires_at,omitempty"`
}

func toJobResponse(job *domain.Job) jobResponse {
	resp := jobResponse{
		ID:             job.ID,
		SubscriptionID: job.SubscriptionID,
		Period:         job.Period.String(),
		DueAt:          job.DueAt.UTC().Format("2006-01-02T15:04:05Z"),
		RunAt:          job.RunAt.UTC().Format("2006-01-02T15:04:05Z"),
		AttemptCount:   job.AttemptCount,
		Status:         string(job.Status),
		LastError:      job.LastError,
	}
	if job.LeaseExpiresAt != nil {
		resp.LeaseExpiresAt = job.LeaseExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Msg("api: job load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

// ListAbandonedJobs surfaces deliveries that exhausted their attempts and
// need operator attention.
func (a *App) ListAbandonedJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Jobs.ListAbandoned(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("api: abandoned list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list abandoned jobs")
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": out})
}

// RequeueJob puts an abandoned job back in the pending queue with its
// attempt count reset.
func (a *App) RequeueJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Jobs.Requeue(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no abandoned job with that id")
			return
		}
		a.Logger.Error().Err(err).Msg("api: job requeue failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to requeue job")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "status": string(domain.JobStatusPending)})
}

func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := a.Jobs.CountByStatus(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("api: stats failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	byStatus := make(map[string]int, len(counts))
	for status, count := range counts {
		byStatus[string(status)] = count
	}
	a.json(w, http.StatusOK, map[string]any{"jobs_by_status": byStatus})
}
