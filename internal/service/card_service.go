package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/languagesgo/stickerforge/internal/domain"
	"github.com/languagesgo/stickerforge/internal/events"
	"github.com/languagesgo/stickerforge/internal/store"
)

// ErrCardNotFound indicates that the requested card does not exist.
var ErrCardNotFound = errors.New("card not found")

// CardServiceError is a custom error type for card service errors.
type CardServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for CardServiceError.
func (e *CardServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("card service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("card service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CardServiceError) Unwrap() error {
	return e.Err
}

// NewCardServiceError creates a new CardServiceError.
func NewCardServiceError(operation, message string, err error) *CardServiceError {
	return &CardServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// CardRepository defines the repository interface for the service layer
type CardRepository interface {
	// CreateMultiple saves multiple cards to the store
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// WithTx returns a new repository instance that uses the provided transaction
	WithTx(tx *sql.Tx) CardRepository

	// DB returns the underlying database connection
	DB() *sql.DB
}

// CardService provides card-related operations
type CardService interface {
	// IngestCards persists a batch of identified vocabulary cards atomically
	// and emits a sticker request event for every card that does not already
	// carry managed artwork.
	IngestCards(ctx context.Context, cards []*domain.Card) error

	// GetCard retrieves a card by its ID
	GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
}

// cardServiceImpl implements the CardService interface
type cardServiceImpl struct {
	cardRepo     CardRepository
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewCardService creates a new CardService.
// It returns an error if any of the required dependencies are nil.
func NewCardService(
	cardRepo CardRepository,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (CardService, error) {
	if cardRepo == nil {
		return nil, NewCardServiceError("create_service", "cardRepo cannot be nil", nil)
	}
	if eventEmitter == nil {
		return nil, NewCardServiceError("create_service", "eventEmitter cannot be nil", nil)
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &cardServiceImpl{
		cardRepo:     cardRepo,
		eventEmitter: eventEmitter,
		logger:       logger.With(slog.String("component", "card_service")),
	}, nil
}

// IngestCards saves the capture batch in one transaction so that either the
// whole batch lands or none of it does, then emits sticker request events.
// Cards that already point into the managed sticker store do not get events.
func (s *cardServiceImpl) IngestCards(ctx context.Context, cards []*domain.Card) error {
	if len(cards) == 0 {
		return NewCardServiceError("ingest_cards", "no cards provided", domain.ErrValidation)
	}

	for _, card := range cards {
		if card == nil {
			return NewCardServiceError("ingest_cards", "card cannot be nil", domain.ErrValidation)
		}
		if err := card.Validate(); err != nil {
			return NewCardServiceError("ingest_cards",
				fmt.Sprintf("invalid card %q", card.Word), err)
		}
	}

	err := store.RunInTransaction(ctx, s.cardRepo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.cardRepo.WithTx(tx)
		if err := txRepo.CreateMultiple(ctx, cards); err != nil {
			s.logger.Error("failed to create cards in transaction",
				"error", err,
				"card_count", len(cards))
			return NewCardServiceError("ingest_cards", "failed to save cards", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("cards ingested", "card_count", len(cards))

	for _, card := range cards {
		if domain.HasManagedSticker(card.StickerURL) {
			continue
		}

		event, err := events.NewStickerRequestEvent(events.EventTypeStickerGeneration,
			events.StickerRequestPayload{
				CardID:   card.ID,
				Word:     card.Word,
				Language: card.Language,
				Category: card.Category,
			})
		if err != nil {
			s.logger.Error("failed to create sticker request event",
				"error", err,
				"card_id", card.ID)
			return NewCardServiceError("ingest_cards", "failed to create event", err)
		}

		if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
			s.logger.Error("failed to emit sticker request event",
				"error", err,
				"card_id", card.ID,
				"event_id", event.ID)
			return NewCardServiceError("ingest_cards", "failed to emit event", err)
		}

		s.logger.Debug("sticker request event emitted",
			"card_id", card.ID,
			"event_id", event.ID)
	}

	return nil
}

// GetCard retrieves a card by its ID
func (s *cardServiceImpl) GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		s.logger.Error("failed to retrieve card",
			"error", err,
			"card_id", cardID)
		return nil, NewCardServiceError("get_card", "failed to retrieve card", err)
	}

	return card, nil
}
