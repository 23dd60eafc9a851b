package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/languagesgo/stickerforge/internal/domain"
)

// CardStore defines the interface for vocabulary card persistence.
type CardStore interface {
	// CreateMultiple saves multiple cards to the store. Run this within a
	// transaction (WithTx + store.RunInTransaction) so that card ingestion is
	// atomic: either the whole capture batch lands or none of it does.
	// Returns validation errors if any card data is invalid.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// UpdateStickerURL sets a card's sticker_url field. This is only called
	// from the job success path: a failed generation must leave the card's
	// existing URL untouched.
	// Returns ErrCardNotFound if the card does not exist.
	UpdateStickerURL(ctx context.Context, id uuid.UUID, stickerURL string) error

	// ListMissingStickers returns cards whose sticker_url does not point into
	// the managed store, up to limit. Used by the backfill entry point.
	ListMissingStickers(ctx context.Context, limit int) ([]*domain.Card, error)

	// WithTx returns a CardStore bound to the provided transaction so that
	// multiple operations can be executed atomically.
	WithTx(tx *sql.Tx) CardStore
}
