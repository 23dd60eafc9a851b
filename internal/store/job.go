package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/languagesgo/stickerforge/internal/domain"
)

// JobStore defines the interface for the durable sticker-job mirror. The
// in-memory queue is authoritative while the process lives; this table exists
// so that UI polling and restarts can recover job lifecycle. Rows are never
// deleted; completed and failed jobs remain as an audit trail.
type JobStore interface {
	// SaveJob inserts a new job record.
	SaveJob(ctx context.Context, job *domain.StickerJob) error

	// UpdateJob persists a job's current status, error message, sticker URL
	// and completion timestamp.
	UpdateJob(ctx context.Context, job *domain.StickerJob) error

	// GetByID retrieves a job by ID. Returns ErrJobNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StickerJob, error)

	// ListByStatus retrieves all jobs with the given status, oldest first.
	// Used by startup recovery to re-admit unfinished work.
	ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.StickerJob, error)

	// WithTx returns a JobStore bound to the provided transaction.
	WithTx(tx *sql.Tx) JobStore
}
