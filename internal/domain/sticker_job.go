package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a sticker generation job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether a job in this status may never transition again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// StickerJob validation and transition errors
var (
	// ErrJobIDEmpty is returned when a job ID is empty or nil.
	ErrJobIDEmpty = errors.New("job ID cannot be empty")

	// ErrJobCardIDEmpty is returned when a job's card reference is empty or nil.
	ErrJobCardIDEmpty = errors.New("job card ID cannot be empty")

	// ErrJobWordEmpty is returned when a job's word is empty.
	ErrJobWordEmpty = errors.New("job word cannot be empty")

	// ErrJobCategoryEmpty is returned when a job's category is empty.
	ErrJobCategoryEmpty = errors.New("job category cannot be empty")

	// ErrJobTerminal is returned when a transition is attempted on a job
	// that has already reached completed or failed.
	ErrJobTerminal = errors.New("job is in a terminal state")
)

// StickerJob is one unit of artwork-generation work tied to a single
// vocabulary card. Jobs move pending -> processing -> completed|failed and
// are never resurrected from a terminal state; retrying means enqueueing a
// new job.
type StickerJob struct {
	ID           uuid.UUID  `json:"id"`
	CardID       uuid.UUID  `json:"card_id"`
	Word         string     `json:"word"`
	Language     string     `json:"language"`
	Category     string     `json:"category"`
	Status       JobStatus  `json:"status"`
	StickerURL   string     `json:"sticker_url,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewStickerJob creates a pending StickerJob for the given card.
// Returns an error if validation fails.
func NewStickerJob(card *Card) (*StickerJob, error) {
	now := time.Now().UTC()
	job := &StickerJob{
		ID:        uuid.New(),
		CardID:    card.ID,
		Word:      card.Word,
		Language:  card.Language,
		Category:  card.Category,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the StickerJob has valid data.
func (j *StickerJob) Validate() error {
	if j.ID == uuid.Nil {
		return ErrJobIDEmpty
	}

	if j.CardID == uuid.Nil {
		return ErrJobCardIDEmpty
	}

	if j.Word == "" {
		return ErrJobWordEmpty
	}

	if j.Category == "" {
		return ErrJobCategoryEmpty
	}

	return nil
}

// MarkProcessing transitions the job from pending to processing.
func (j *StickerJob) MarkProcessing() error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}

	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted records the resulting sticker URL and moves the job to its
// completed terminal state.
func (j *StickerJob) MarkCompleted(stickerURL string) error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}

	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.StickerURL = stickerURL
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkFailed records the failure reason and moves the job to its failed
// terminal state. The associated card's sticker URL is left untouched.
func (j *StickerJob) MarkFailed(errorMessage string) error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}

	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.ErrorMessage = errorMessage
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Snapshot returns a copy of the job safe to hand to callers while the
// original keeps mutating inside the queue.
func (j *StickerJob) Snapshot() StickerJob {
	copy := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		copy.CompletedAt = &t
	}
	return copy
}
