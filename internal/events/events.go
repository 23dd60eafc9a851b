package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventTypeStickerGeneration is emitted when a card needs a sticker generated.
const EventTypeStickerGeneration = "sticker_generation"

// StickerRequestEvent represents a request to generate a sticker in the
// background. It carries the information needed to enqueue a job without a
// direct dependency on the queue package.
type StickerRequestEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates the kind of background work requested
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// StickerRequestPayload is the payload carried by a sticker generation event.
type StickerRequestPayload struct {
	CardID   uuid.UUID `json:"card_id"`
	Word     string    `json:"word"`
	Language string    `json:"language"`
	Category string    `json:"category"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *StickerRequestEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewStickerRequestEvent creates a new StickerRequestEvent with the specified
// type and payload.
func NewStickerRequestEvent(eventType string, payload interface{}) (*StickerRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &StickerRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *StickerRequestEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *StickerRequestEvent) error
}
