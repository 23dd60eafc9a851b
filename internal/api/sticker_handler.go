package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/languagesgo/stickerforge/internal/api/shared"
	"github.com/languagesgo/stickerforge/internal/cache"
	"github.com/languagesgo/stickerforge/internal/domain"
	"github.com/languagesgo/stickerforge/internal/service"
	"github.com/languagesgo/stickerforge/internal/store"
)

// StickerQueue is the slice of the queue the HTTP layer depends on.
type StickerQueue interface {
	Enqueue(ctx context.Context, card *domain.Card) (uuid.UUID, error)
	JobStatus(ctx context.Context, id uuid.UUID) (domain.StickerJob, error)
	PendingCount() int
	Backfill(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// EnqueueStickerRequest represents the request body for requesting a sticker.
type EnqueueStickerRequest struct {
	CardID string `json:"card_id" validate:"required,uuid"`
}

// JobResponse represents the externally visible state of a sticker job.
type JobResponse struct {
	JobID        string     `json:"job_id"`
	CardID       string     `json:"card_id"`
	Word         string     `json:"word"`
	Status       string     `json:"status"`
	StickerURL   string     `json:"sticker_url,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// BackfillRequest represents the request body for a sticker backfill run.
// The body is optional; an absent or zero limit uses the default.
type BackfillRequest struct {
	Limit int `json:"limit" validate:"omitempty,gte=1,lte=500"`
}

// BackfillResponse reports the jobs a backfill run created.
type BackfillResponse struct {
	EnqueuedJobIDs []string `json:"enqueued_job_ids"`
}

// QueueStatsResponse represents the queue depth endpoint's response.
type QueueStatsResponse struct {
	PendingCount int `json:"pending_count"`
}

// StickerHandler handles sticker job HTTP requests
type StickerHandler struct {
	cardService service.CardService
	queue       StickerQueue
	statuses    cache.Cache // optional, may be nil
	logger      *slog.Logger
}

// NewStickerHandler creates a new StickerHandler. The statuses cache is
// optional; pass nil to always read job status from the queue.
func NewStickerHandler(
	cardService service.CardService,
	queue StickerQueue,
	statuses cache.Cache,
	logger *slog.Logger,
) *StickerHandler {
	return &StickerHandler{
		cardService: cardService,
		queue:       queue,
		statuses:    statuses,
		logger:      logger.With(slog.String("component", "sticker_handler")),
	}
}

// EnqueueSticker handles POST /api/v1/stickers requests
func (h *StickerHandler) EnqueueSticker(w http.ResponseWriter, r *http.Request) {
	var req EnqueueStickerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid card ID")
		return
	}

	card, err := h.cardService.GetCard(r.Context(), cardID)
	if err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Card not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to retrieve card", err)
		return
	}

	if domain.HasManagedSticker(card.StickerURL) {
		shared.RespondWithError(w, r, http.StatusConflict, "Card already has a sticker")
		return
	}

	jobID, err := h.queue.Enqueue(r.Context(), card)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to enqueue sticker job", err)
		return
	}

	job, err := h.queue.JobStatus(r.Context(), jobID)
	if err != nil {
		// The job exists; worst case the poll endpoint serves it later
		h.logger.Warn("failed to read back enqueued job", "job_id", jobID, "error", err)
		shared.RespondWithJSON(w, r, http.StatusAccepted, JobResponse{
			JobID:  jobID.String(),
			CardID: card.ID.String(),
			Word:   card.Word,
			Status: string(domain.JobStatusPending),
		})
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(job))
}

// GetJobStatus handles GET /api/v1/stickers/jobs/{jobID} requests. Status is
// served from the Redis cache when possible so UI polling does not hammer
// the queue or Postgres.
func (h *StickerHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	if job, ok := h.cachedJob(r.Context(), jobID); ok {
		shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
		return
	}

	job, err := h.queue.JobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) || errors.Is(err, store.ErrNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to retrieve job status", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// defaultBackfillLimit caps one backfill run when the caller does not choose.
const defaultBackfillLimit = 50

// Backfill handles POST /api/v1/stickers/backfill requests. It enqueues jobs
// for cards that still lack managed artwork, for catch-up after downtime.
func (h *StickerHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	var req BackfillRequest
	if err := shared.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultBackfillLimit
	}

	jobIDs, err := h.queue.Backfill(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to backfill sticker jobs", err)
		return
	}

	resp := BackfillResponse{EnqueuedJobIDs: make([]string, 0, len(jobIDs))}
	for _, id := range jobIDs {
		resp.EnqueuedJobIDs = append(resp.EnqueuedJobIDs, id.String())
	}

	h.logger.Info("backfill run enqueued jobs", "count", len(jobIDs), "limit", limit)
	shared.RespondWithJSON(w, r, http.StatusAccepted, resp)
}

// GetQueueStats handles GET /api/v1/stickers/queue requests
func (h *StickerHandler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, QueueStatsResponse{
		PendingCount: h.queue.PendingCount(),
	})
}

// cachedJob attempts to serve a job snapshot from the status cache.
// Cache misses and errors both fall through to the queue.
func (h *StickerHandler) cachedJob(ctx context.Context, jobID uuid.UUID) (domain.StickerJob, bool) {
	if h.statuses == nil {
		return domain.StickerJob{}, false
	}

	payload, found, err := h.statuses.GetJobSnapshot(ctx, jobID)
	if err != nil {
		h.logger.Warn("job status cache read failed", "job_id", jobID, "error", err)
		return domain.StickerJob{}, false
	}
	if !found {
		return domain.StickerJob{}, false
	}

	var job domain.StickerJob
	if err := json.Unmarshal(payload, &job); err != nil {
		h.logger.Warn("job status cache entry malformed", "job_id", jobID, "error", err)
		return domain.StickerJob{}, false
	}

	return job, true
}

// jobToResponse converts a domain.StickerJob to a JobResponse
func jobToResponse(job domain.StickerJob) JobResponse {
	return JobResponse{
		JobID:        job.ID.String(),
		CardID:       job.CardID.String(),
		Word:         job.Word,
		Status:       string(job.Status),
		StickerURL:   job.StickerURL,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
	}
}
