package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/languagesgo/stickerforge/internal/cache"
	"github.com/languagesgo/stickerforge/internal/domain"
	"github.com/languagesgo/stickerforge/internal/generation"
	"github.com/languagesgo/stickerforge/internal/store"
)

// Config holds tuning parameters for the sticker queue.
type Config struct {
	// BatchSize bounds how many jobs are dispatched concurrently per
	// iteration of the processing loop.
	BatchSize int

	// InterBatchDelay is the pause between batches, keeping the image API
	// call rate under control.
	InterBatchDelay time.Duration

	// JobTimeout bounds a single job's generation attempt.
	JobTimeout time.Duration

	// SnapshotTTL bounds how long a cached job snapshot can outlive its
	// last write. Terminal snapshots stay useful for UI polling for a
	// while after the job leaves the backlog, then age out.
	SnapshotTTL time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:       5,
		InterBatchDelay: 2 * time.Second,
		JobTimeout:      60 * time.Second,
		SnapshotTTL:     time.Hour,
	}
}

// StickerQueue manages background sticker generation jobs.
//
// The in-memory backlog is the authoritative job state while the process
// lives. Every transition is mirrored to the job store and the status cache
// on a best-effort basis: mirror failures are logged, never surfaced to
// callers, and never block the loop. Startup recovery re-admits unfinished
// mirror rows so a restart does not orphan queued work.
type StickerQueue struct {
	cards     store.CardStore
	jobs      store.JobStore
	generator generation.Generator
	statuses  cache.Cache
	logger    *slog.Logger
	config    Config

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	mu      sync.Mutex
	backlog map[uuid.UUID]*domain.StickerJob
	order   []uuid.UUID
	running bool
}

// New creates a StickerQueue with the given dependencies. The statuses cache
// is optional; pass nil to disable status caching. Zero config fields fall
// back to defaults.
func New(
	cards store.CardStore,
	jobs store.JobStore,
	generator generation.Generator,
	statuses cache.Cache,
	logger *slog.Logger,
	config Config,
) (*StickerQueue, error) {
	if cards == nil {
		return nil, errors.New("card store cannot be nil")
	}
	if jobs == nil {
		return nil, errors.New("job store cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.InterBatchDelay <= 0 {
		config.InterBatchDelay = defaults.InterBatchDelay
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if config.SnapshotTTL <= 0 {
		config.SnapshotTTL = defaults.SnapshotTTL
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &StickerQueue{
		cards:      cards,
		jobs:       jobs,
		generator:  generator,
		statuses:   statuses,
		logger:     logger.With("component", "sticker_queue"),
		config:     config,
		ctx:        ctx,
		cancelFunc: cancel,
		backlog:    make(map[uuid.UUID]*domain.StickerJob),
	}, nil
}

// Enqueue creates a pending job for the card and admits it to the backlog.
// It returns the new job's ID immediately; generation happens in the
// background. The mirror write is best-effort.
func (q *StickerQueue) Enqueue(ctx context.Context, card *domain.Card) (uuid.UUID, error) {
	if card == nil {
		return uuid.Nil, fmt.Errorf("%w: card cannot be nil", domain.ErrValidation)
	}

	job, err := domain.NewStickerJob(card)
	if err != nil {
		return uuid.Nil, err
	}

	if err := q.jobs.SaveJob(ctx, job); err != nil {
		q.logger.Error("failed to mirror new job",
			"job_id", job.ID,
			"card_id", job.CardID,
			"error", err)
	}
	q.cacheSnapshot(job.Snapshot())

	q.admit(job)

	q.logger.Info("job enqueued",
		"job_id", job.ID,
		"card_id", job.CardID,
		"word", job.Word)

	return job.ID, nil
}

// EnqueueNewCards enqueues jobs for every card that does not already carry a
// managed sticker. Cards that fail validation are logged and skipped so one
// bad card cannot block the rest of a capture batch. Returns the IDs of the
// jobs created.
func (q *StickerQueue) EnqueueNewCards(ctx context.Context, cards []*domain.Card) []uuid.UUID {
	jobIDs := make([]uuid.UUID, 0, len(cards))

	for _, card := range cards {
		if card == nil {
			continue
		}

		if domain.HasManagedSticker(card.StickerURL) {
			q.logger.Debug("card already has a managed sticker, skipping",
				"card_id", card.ID,
				"word", card.Word)
			continue
		}

		jobID, err := q.Enqueue(ctx, card)
		if err != nil {
			q.logger.Warn("skipping card that cannot be enqueued",
				"card_id", card.ID,
				"word", card.Word,
				"error", err)
			continue
		}

		jobIDs = append(jobIDs, jobID)
	}

	return jobIDs
}

// Backfill enqueues jobs for cards that still lack managed artwork, up to
// limit. It exists for operator-triggered catch-up when cards were created
// while the service was down or generation kept failing.
func (q *StickerQueue) Backfill(ctx context.Context, limit int) ([]uuid.UUID, error) {
	cards, err := q.cards.ListMissingStickers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards missing stickers: %w", err)
	}
	return q.EnqueueNewCards(ctx, cards), nil
}

// JobStatus returns a snapshot of the job's current state. The in-memory
// backlog is consulted first; jobs that have already been dropped from the
// backlog are read from the mirror. Returns store.ErrJobNotFound for unknown
// IDs.
func (q *StickerQueue) JobStatus(ctx context.Context, id uuid.UUID) (domain.StickerJob, error) {
	q.mu.Lock()
	if job, ok := q.backlog[id]; ok {
		snapshot := job.Snapshot()
		q.mu.Unlock()
		return snapshot, nil
	}
	q.mu.Unlock()

	job, err := q.jobs.GetByID(ctx, id)
	if err != nil {
		return domain.StickerJob{}, err
	}

	return job.Snapshot(), nil
}

// PendingCount reports how many jobs in the in-memory backlog are still
// pending. Jobs known only to the mirror are not counted.
func (q *StickerQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for _, job := range q.backlog {
		if job.Status == domain.JobStatusPending {
			count++
		}
	}
	return count
}

// Start recovers unfinished jobs from the mirror and begins processing.
func (q *StickerQueue) Start(ctx context.Context) error {
	if err := q.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}
	return nil
}

// Stop cancels in-flight work and waits for the processing loop to exit.
func (q *StickerQueue) Stop() {
	q.cancelFunc()
	q.wg.Wait()
}

// Recover re-admits unfinished mirror rows into the in-memory backlog.
// Pending rows are admitted as-is; processing rows were interrupted by a
// crash or restart and are reset to pending first.
func (q *StickerQueue) Recover(ctx context.Context) error {
	pending, err := q.jobs.ListByStatus(ctx, domain.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}

	processing, err := q.jobs.ListByStatus(ctx, domain.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to list processing jobs: %w", err)
	}

	q.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, job := range pending {
		q.admit(job)
	}

	for _, job := range processing {
		job.Status = domain.JobStatusPending
		job.UpdatedAt = time.Now().UTC()
		if err := q.jobs.UpdateJob(ctx, job); err != nil {
			q.logger.Error("failed to reset interrupted job in mirror",
				"job_id", job.ID,
				"error", err)
		}
		// A stale processing snapshot may still be cached from before
		// the restart. Overwrite it so status reads match the mirror.
		q.cacheSnapshot(job.Snapshot())
		q.admit(job)
	}

	return nil
}

// admit adds a job to the backlog and kicks the processing loop if it is
// idle.
func (q *StickerQueue) admit(job *domain.StickerJob) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.backlog[job.ID]; exists {
		return
	}

	q.backlog[job.ID] = job
	q.order = append(q.order, job.ID)

	if !q.running {
		q.running = true
		q.wg.Add(1)
		go q.processLoop()
	}
}

// processLoop drains the backlog one batch at a time until no pending jobs
// remain, then exits back to idle. A new Enqueue restarts it.
func (q *StickerQueue) processLoop() {
	defer q.wg.Done()

	for {
		batch := q.nextBatch()
		if len(batch) == 0 {
			return
		}

		q.logger.Debug("dispatching batch", "size", len(batch))

		var wg sync.WaitGroup
		for _, job := range batch {
			wg.Add(1)
			go func(job *domain.StickerJob) {
				defer wg.Done()
				q.processJob(job)
			}(job)
		}
		wg.Wait()

		q.dropTerminal(batch)

		select {
		case <-time.After(q.config.InterBatchDelay):
		case <-q.ctx.Done():
			q.mu.Lock()
			q.running = false
			q.mu.Unlock()
			return
		}
	}
}

// nextBatch collects up to BatchSize pending jobs in admission order, marking
// each as processing. When no pending jobs remain the loop is flipped to idle
// under the same lock, so a concurrent Enqueue cannot miss a wakeup.
func (q *StickerQueue) nextBatch() []*domain.StickerJob {
	q.mu.Lock()

	batch := make([]*domain.StickerJob, 0, q.config.BatchSize)
	for _, id := range q.order {
		if len(batch) == q.config.BatchSize {
			break
		}
		job, ok := q.backlog[id]
		if !ok || job.Status != domain.JobStatusPending {
			continue
		}
		if err := job.MarkProcessing(); err != nil {
			continue
		}
		batch = append(batch, job)
	}

	if len(batch) == 0 {
		q.running = false
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	for _, job := range batch {
		q.mirrorUpdate(job)
	}

	return batch
}

// processJob runs a single job to a terminal state. Failures never propagate:
// the job records its own outcome and the batch continues.
func (q *StickerQueue) processJob(job *domain.StickerJob) {
	ctx, cancel := context.WithTimeout(q.ctx, q.config.JobTimeout)
	defer cancel()

	logger := q.logger.With("job_id", job.ID, "card_id", job.CardID, "word", job.Word)
	logger.Info("processing job")

	card, err := q.cards.GetByID(ctx, job.CardID)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			q.fail(job, "card not found")
		} else {
			q.fail(job, fmt.Sprintf("failed to load card: %v", err))
		}
		logger.Error("job failed", "error", err)
		return
	}

	sticker, err := q.generator.GenerateSticker(ctx, job.Word, job.Language, job.Category)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			q.fail(job, fmt.Sprintf("sticker generation timed out after %s", q.config.JobTimeout))
		} else {
			q.fail(job, err.Error())
		}
		logger.Error("job failed", "error", err)
		return
	}

	// The card row is only touched on success. A failed generation must
	// leave any existing sticker URL intact.
	if err := q.cards.UpdateStickerURL(ctx, card.ID, sticker.URL); err != nil {
		q.fail(job, fmt.Sprintf("failed to update card sticker URL: %v", err))
		logger.Error("job failed", "error", err)
		return
	}

	q.complete(job, sticker.URL)
	logger.Info("job completed", "sticker_url", sticker.URL)
}

// fail transitions a job to its failed terminal state and mirrors it.
// During shutdown the queue context is canceled and every in-flight job
// errors out; those are not real failures, so the job is left in its
// processing state for Recover to re-admit on the next start.
func (q *StickerQueue) fail(job *domain.StickerJob, message string) {
	if q.ctx.Err() != nil {
		q.logger.Info("shutdown interrupted job; leaving it for recovery", "job_id", job.ID)
		return
	}

	q.mu.Lock()
	err := job.MarkFailed(message)
	q.mu.Unlock()
	if err != nil {
		q.logger.Warn("ignoring transition on terminal job", "job_id", job.ID, "error", err)
		return
	}
	q.mirrorUpdate(job)
}

// complete transitions a job to its completed terminal state and mirrors it.
func (q *StickerQueue) complete(job *domain.StickerJob, stickerURL string) {
	q.mu.Lock()
	err := job.MarkCompleted(stickerURL)
	q.mu.Unlock()
	if err != nil {
		q.logger.Warn("ignoring transition on terminal job", "job_id", job.ID, "error", err)
		return
	}
	q.mirrorUpdate(job)
}

// mirrorUpdate pushes a job's current state to the mirror and the status
// cache. Both writes are best-effort; the job's ctx may already be expired,
// so mirror writes run on the queue's own context.
func (q *StickerQueue) mirrorUpdate(job *domain.StickerJob) {
	q.mu.Lock()
	snapshot := job.Snapshot()
	q.mu.Unlock()

	if err := q.jobs.UpdateJob(q.ctx, &snapshot); err != nil {
		q.logger.Error("failed to mirror job update",
			"job_id", snapshot.ID,
			"status", snapshot.Status,
			"error", err)
	}

	q.cacheSnapshot(snapshot)
}

// cacheSnapshot writes a serialized job snapshot to the status cache.
func (q *StickerQueue) cacheSnapshot(snapshot domain.StickerJob) {
	if q.statuses == nil {
		return
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		q.logger.Error("failed to serialize job snapshot", "job_id", snapshot.ID, "error", err)
		return
	}

	if err := q.statuses.SetJobSnapshot(q.ctx, snapshot.ID, payload, q.config.SnapshotTTL); err != nil {
		q.logger.Warn("failed to cache job snapshot", "job_id", snapshot.ID, "error", err)
	}
}

// dropTerminal removes settled jobs from the backlog. Their state remains
// readable through the mirror and the cache.
func (q *StickerQueue) dropTerminal(batch []*domain.StickerJob) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range batch {
		if !job.Status.IsTerminal() {
			continue
		}
		delete(q.backlog, job.ID)
	}

	if len(q.backlog) == 0 {
		q.order = q.order[:0]
		return
	}

	remaining := q.order[:0]
	for _, id := range q.order {
		if _, ok := q.backlog[id]; ok {
			remaining = append(remaining, id)
		}
	}
	q.order = remaining
}
