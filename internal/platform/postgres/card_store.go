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

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the
// CardStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// CreateMultiple saves multiple cards in a single batch. Callers that need
// atomicity run this through WithTx inside store.RunInTransaction.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	query := `
		INSERT INTO vocabulary_cards
			(id, word, translation, language, difficulty, category, sticker_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		_, err := s.db.ExecContext(ctx, query,
			card.ID,
			card.Word,
			card.Translation,
			card.Language,
			card.Difficulty,
			card.Category,
			card.StickerURL,
			card.CreatedAt,
			card.UpdatedAt,
		)
		if err != nil {
			s.logger.Error("failed to insert card",
				"card_id", card.ID,
				"word", card.Word,
				"error", err)
			return mapError(err)
		}
	}

	s.logger.Debug("inserted cards", "count", len(cards))
	return nil
}

// GetByID retrieves a card by its unique ID.
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `
		SELECT id, word, translation, language, difficulty, category, sticker_url, created_at, updated_at
		FROM vocabulary_cards
		WHERE id = $1
	`

	var card domain.Card
	var stickerURL sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&card.ID,
		&card.Word,
		&card.Translation,
		&card.Language,
		&card.Difficulty,
		&card.Category,
		&stickerURL,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		return nil, mapError(err)
	}

	card.StickerURL = stickerURL.String
	return &card, nil
}

// UpdateStickerURL sets a card's sticker_url. Only the job success path calls
// this; failed jobs leave the column alone.
func (s *PostgresCardStore) UpdateStickerURL(ctx context.Context, id uuid.UUID, stickerURL string) error {
	query := `
		UPDATE vocabulary_cards
		SET sticker_url = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, stickerURL, time.Now().UTC(), id)
	if err != nil {
		s.logger.Error("failed to update card sticker URL",
			"card_id", id,
			"error", err)
		return mapError(err)
	}

	return checkRowsAffected(result, store.ErrCardNotFound)
}

// ListMissingStickers returns cards without managed artwork, oldest first.
// The filter matches domain.HasManagedSticker: NULL, empty, and external URLs
// all count as missing.
func (s *PostgresCardStore) ListMissingStickers(ctx context.Context, limit int) ([]*domain.Card, error) {
	query := `
		SELECT id, word, translation, language, difficulty, category, sticker_url, created_at, updated_at
		FROM vocabulary_cards
		WHERE sticker_url IS NULL OR sticker_url NOT LIKE '%/stickers/%'
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		var card domain.Card
		var stickerURL sql.NullString

		if err := rows.Scan(
			&card.ID,
			&card.Word,
			&card.Translation,
			&card.Language,
			&card.Difficulty,
			&card.Category,
			&stickerURL,
			&card.CreatedAt,
			&card.UpdatedAt,
		); err != nil {
			return nil, mapError(err)
		}

		card.StickerURL = stickerURL.String
		cards = append(cards, &card)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return cards, nil
}

// WithTx returns a CardStore bound to the provided transaction.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}
