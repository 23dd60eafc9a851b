package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/languagesgo/stickerforge/internal/domain"
	"github.com/languagesgo/stickerforge/internal/store"
)

// PostgresJobStore implements the store.JobStore interface using PostgreSQL.
// It is the durable mirror of the in-memory sticker queue: one row per job,
// updated on every lifecycle transition, never deleted.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgresJobStore.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// SaveJob inserts a new job record.
func (s *PostgresJobStore) SaveJob(ctx context.Context, job *domain.StickerJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO sticker_jobs
			(id, card_id, word, language, category, status, error_message, sticker_url, created_at, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.CardID,
		job.Word,
		job.Language,
		job.Category,
		job.Status,
		job.ErrorMessage,
		job.StickerURL,
		job.CreatedAt,
		job.CompletedAt,
		job.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("failed to save job",
			"job_id", job.ID,
			"card_id", job.CardID,
			"error", err)
		return mapError(err)
	}

	return nil
}

// UpdateJob persists a job's current lifecycle fields.
func (s *PostgresJobStore) UpdateJob(ctx context.Context, job *domain.StickerJob) error {
	query := `
		UPDATE sticker_jobs
		SET status = $1, error_message = $2, sticker_url = $3, completed_at = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		job.Status,
		job.ErrorMessage,
		job.StickerURL,
		job.CompletedAt,
		time.Now().UTC(),
		job.ID,
	)
	if err != nil {
		s.logger.Error("failed to update job",
			"job_id", job.ID,
			"status", job.Status,
			"error", err)
		return mapError(err)
	}

	return checkRowsAffected(result, store.ErrJobNotFound)
}

// GetByID retrieves a job by ID.
// Returns store.ErrJobNotFound if the job does not exist.
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StickerJob, error) {
	query := `
		SELECT id, card_id, word, language, category, status, error_message, sticker_url, created_at, completed_at, updated_at
		FROM sticker_jobs
		WHERE id = $1
	`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, mapError(err)
	}

	return job, nil
}

// ListByStatus retrieves all jobs with the given status, oldest first.
func (s *PostgresJobStore) ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.StickerJob, error) {
	query := `
		SELECT id, card_id, word, language, category, status, error_message, sticker_url, created_at, completed_at, updated_at
		FROM sticker_jobs
		WHERE status = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.StickerJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, mapError(err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return jobs, nil
}

// WithTx returns a JobStore bound to the provided transaction.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.StickerJob, error) {
	var job domain.StickerJob
	var rawStatus string
	var errorMessage, stickerURL sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.CardID,
		&job.Word,
		&job.Language,
		&job.Category,
		&rawStatus,
		&errorMessage,
		&stickerURL,
		&job.CreatedAt,
		&completedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	status, err := domain.ParseJobStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}

	job.Status = status
	job.ErrorMessage = errorMessage.String
	job.StickerURL = stickerURL.String
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}
