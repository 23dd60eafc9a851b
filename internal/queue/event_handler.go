package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/languagesgo/stickerforge/internal/domain"
	"github.com/languagesgo/stickerforge/internal/events"
	"github.com/languagesgo/stickerforge/internal/store"
)

// enqueuer is the slice of the queue the event handler needs.
type enqueuer interface {
	EnqueueNewCards(ctx context.Context, cards []*domain.Card) []uuid.UUID
}

// StickerEventHandler implements the events.EventHandler interface, turning
// sticker request events into queued jobs. It sits between the card service
// and the queue so that neither depends on the other.
type StickerEventHandler struct {
	cards  store.CardStore
	queue  enqueuer
	logger *slog.Logger
}

// NewStickerEventHandler creates an event handler that loads the referenced
// card and submits it to the queue.
func NewStickerEventHandler(
	cards store.CardStore,
	queue enqueuer,
	logger *slog.Logger,
) *StickerEventHandler {
	return &StickerEventHandler{
		cards:  cards,
		queue:  queue,
		logger: logger.With("component", "sticker_event_handler"),
	}
}

// HandleEvent processes sticker generation events by enqueueing a job for
// the referenced card. Events of other types are ignored.
func (h *StickerEventHandler) HandleEvent(
	ctx context.Context,
	event *events.StickerRequestEvent,
) error {
	if event.Type != events.EventTypeStickerGeneration {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.StickerRequestPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	card, err := h.cards.GetByID(ctx, payload.CardID)
	if err != nil {
		h.logger.Error("failed to load card for event",
			"error", err,
			"card_id", payload.CardID,
			"event_id", event.ID)
		return fmt.Errorf("failed to load card: %w", err)
	}

	jobIDs := h.queue.EnqueueNewCards(ctx, []*domain.Card{card})
	if len(jobIDs) == 0 {
		h.logger.Debug("card did not need a sticker",
			"card_id", card.ID,
			"event_id", event.ID)
		return nil
	}

	h.logger.Info("job enqueued from event",
		"job_id", jobIDs[0],
		"card_id", card.ID,
		"event_id", event.ID)
	return nil
}

// Ensure StickerEventHandler implements events.EventHandler
var _ events.EventHandler = (*StickerEventHandler)(nil)
