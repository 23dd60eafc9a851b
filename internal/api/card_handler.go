package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/languagesgo/stickerforge/internal/api/shared"
	"github.com/languagesgo/stickerforge/internal/domain"
	"github.com/languagesgo/stickerforge/internal/service"
)

// IngestedCard is one identified vocabulary word in a capture batch.
type IngestedCard struct {
	Word        string `json:"word"        validate:"required,min=1,max=100"`
	Translation string `json:"translation" validate:"required,min=1,max=200"`
	Language    string `json:"language"    validate:"required,min=2,max=8"`
	Difficulty  int    `json:"difficulty"  validate:"required,gte=1,lte=3"`
	Category    string `json:"category"    validate:"required,min=1,max=50"`
}

// IngestCardsRequest represents the request body for creating cards.
type IngestCardsRequest struct {
	Cards []IngestedCard `json:"cards" validate:"required,min=1,max=50,dive"`
}

// CardResponse represents the response data for a card.
type CardResponse struct {
	ID          string    `json:"id"`
	Word        string    `json:"word"`
	Translation string    `json:"translation"`
	Language    string    `json:"language"`
	Difficulty  int       `json:"difficulty"`
	Category    string    `json:"category"`
	StickerURL  string    `json:"sticker_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IngestCardsResponse represents the response for a successful ingestion.
type IngestCardsResponse struct {
	Cards []CardResponse `json:"cards"`
}

// CardHandler handles card-related HTTP requests
type CardHandler struct {
	cardService service.CardService
	logger      *slog.Logger
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(cardService service.CardService, logger *slog.Logger) *CardHandler {
	return &CardHandler{
		cardService: cardService,
		logger:      logger.With(slog.String("component", "card_handler")),
	}
}

// IngestCards handles POST /api/v1/cards requests. Sticker generation for the
// new cards happens asynchronously, so the response is 202 Accepted.
func (h *CardHandler) IngestCards(w http.ResponseWriter, r *http.Request) {
	var req IngestCardsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	cards := make([]*domain.Card, 0, len(req.Cards))
	for _, in := range req.Cards {
		card, err := domain.NewCard(in.Word, in.Translation, in.Language, in.Difficulty, in.Category)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid card: "+err.Error())
			return
		}
		cards = append(cards, card)
	}

	if err := h.cardService.IngestCards(r.Context(), cards); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid card data")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to save cards", err)
		return
	}

	resp := IngestCardsResponse{Cards: make([]CardResponse, 0, len(cards))}
	for _, card := range cards {
		resp.Cards = append(resp.Cards, cardToResponse(card))
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, resp)
}

// GetCard handles GET /api/v1/cards/{cardID} requests
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := uuid.Parse(chi.URLParam(r, "cardID"))
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

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// cardToResponse converts a domain.Card to a CardResponse
func cardToResponse(card *domain.Card) CardResponse {
	return CardResponse{
		ID:          card.ID.String(),
		Word:        card.Word,
		Translation: card.Translation,
		Language:    card.Language,
		Difficulty:  card.Difficulty,
		Category:    card.Category,
		StickerURL:  card.StickerURL,
		CreatedAt:   card.CreatedAt,
		UpdatedAt:   card.UpdatedAt,
	}
}
