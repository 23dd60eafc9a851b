package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/languagesgo/stickerforge/internal/domain"
	"github.com/languagesgo/stickerforge/internal/service"
)

// MockCardService is a mock implementation of service.CardService for testing
type MockCardService struct {
	IngestCardsFn func(ctx context.Context, cards []*domain.Card) error
	GetCardFn     func(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)

	ingested [][]*domain.Card
}

// IngestCards implements service.CardService
func (m *MockCardService) IngestCards(ctx context.Context, cards []*domain.Card) error {
	m.ingested = append(m.ingested, cards)
	if m.IngestCardsFn != nil {
		return m.IngestCardsFn(ctx, cards)
	}
	return nil
}

// GetCard implements service.CardService
func (m *MockCardService) GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	if m.GetCardFn != nil {
		return m.GetCardFn(ctx, cardID)
	}
	return nil, service.ErrCardNotFound
}

func testAPILogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func validIngestBody() IngestCardsRequest {
	return IngestCardsRequest{
		Cards: []IngestedCard{
			{Word: "gato", Translation: "cat", Language: "es", Difficulty: 1, Category: "animal"},
			{Word: "árbol", Translation: "tree", Language: "es", Difficulty: 2, Category: "nature"},
		},
	}
}

func TestCardHandler_IngestCards(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockCardService)
		expectedStatus int
		expectedErrMsg string
		expectedCards  int
	}{
		{
			name:           "successful_ingestion",
			requestBody:    validIngestBody(),
			setupMock:      func(ms *MockCardService) {},
			expectedStatus: http.StatusAccepted,
			expectedCards:  2,
		},
		{
			name:           "invalid_json",
			requestBody:    `{"cards": [`,
			setupMock:      func(ms *MockCardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid request format",
		},
		{
			name:           "empty_batch",
			requestBody:    IngestCardsRequest{Cards: []IngestedCard{}},
			setupMock:      func(ms *MockCardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Validation error",
		},
		{
			name: "difficulty_out_of_range",
			requestBody: IngestCardsRequest{
				Cards: []IngestedCard{
					{Word: "gato", Translation: "cat", Language: "es", Difficulty: 7, Category: "animal"},
				},
			},
			setupMock:      func(ms *MockCardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Validation error",
		},
		{
			name:        "service_validation_error",
			requestBody: validIngestBody(),
			setupMock: func(ms *MockCardService) {
				ms.IngestCardsFn = func(ctx context.Context, cards []*domain.Card) error {
					return domain.ErrValidation
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid card data",
		},
		{
			name:        "service_error",
			requestBody: validIngestBody(),
			setupMock: func(ms *MockCardService) {
				ms.IngestCardsFn = func(ctx context.Context, cards []*domain.Card) error {
					return errors.New("database unreachable")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedErrMsg: "Failed to save cards",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockCardService{}
			tt.setupMock(mockService)

			handler := NewCardHandler(mockService, testAPILogger())

			var reqBody []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				reqBody = []byte(str)
			} else {
				reqBody, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/cards", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.IngestCards(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedErrMsg != "" {
				var respBody map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
				errorMsg, ok := respBody["error"].(string)
				assert.True(t, ok, "Expected error field in response")
				assert.Contains(t, errorMsg, tt.expectedErrMsg)
				return
			}

			var resp IngestCardsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Len(t, resp.Cards, tt.expectedCards)
			for _, card := range resp.Cards {
				assert.NotEmpty(t, card.ID)
				assert.Empty(t, card.StickerURL, "new cards should not carry a sticker yet")
			}

			// The service receives the full batch in one call
			require.Len(t, mockService.ingested, 1)
			assert.Len(t, mockService.ingested[0], tt.expectedCards)
		})
	}
}

func TestCardHandler_GetCard(t *testing.T) {
	cardID := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	fixedTime := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	storedCard := &domain.Card{
		ID:          cardID,
		Word:        "gato",
		Translation: "cat",
		Language:    "es",
		Difficulty:  1,
		Category:    "animal",
		StickerURL:  "https://cdn.example.com/storage/v1/object/public/stickers/es_gato_1.png",
		CreatedAt:   fixedTime,
		UpdatedAt:   fixedTime,
	}

	tests := []struct {
		name           string
		cardID         string
		setupMock      func(*MockCardService)
		expectedStatus int
		expectedErrMsg string
	}{
		{
			name:   "card_found",
			cardID: cardID.String(),
			setupMock: func(ms *MockCardService) {
				ms.GetCardFn = func(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
					require.Equal(t, cardID, id)
					return storedCard, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "card_not_found",
			cardID:         uuid.New().String(),
			setupMock:      func(ms *MockCardService) {},
			expectedStatus: http.StatusNotFound,
			expectedErrMsg: "Card not found",
		},
		{
			name:           "malformed_card_id",
			cardID:         "not-a-uuid",
			setupMock:      func(ms *MockCardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "Invalid card ID",
		},
		{
			name:   "service_error",
			cardID: cardID.String(),
			setupMock: func(ms *MockCardService) {
				ms.GetCardFn = func(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
					return nil, errors.New("database unreachable")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedErrMsg: "Failed to retrieve card",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockCardService{}
			tt.setupMock(mockService)

			handler := NewCardHandler(mockService, testAPILogger())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/cards/"+tt.cardID, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("cardID", tt.cardID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			handler.GetCard(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var respBody map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))

			if tt.expectedErrMsg != "" {
				errorMsg, ok := respBody["error"].(string)
				assert.True(t, ok, "Expected error field in response")
				assert.Contains(t, errorMsg, tt.expectedErrMsg)
				return
			}

			assert.Equal(t, cardID.String(), respBody["id"])
			assert.Equal(t, "gato", respBody["word"])
			assert.Equal(t, "cat", respBody["translation"])
			assert.Equal(t, storedCard.StickerURL, respBody["sticker_url"])
		})
	}
}

func TestCardToResponse(t *testing.T) {
	now := time.Now().UTC()
	card := &domain.Card{
		ID:          uuid.New(),
		Word:        "manzana",
		Translation: "apple",
		Language:    "es",
		Difficulty:  2,
		Category:    "food",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	resp := cardToResponse(card)

	assert.Equal(t, card.ID.String(), resp.ID)
	assert.Equal(t, "manzana", resp.Word)
	assert.Equal(t, "apple", resp.Translation)
	assert.Equal(t, "es", resp.Language)
	assert.Equal(t, 2, resp.Difficulty)
	assert.Equal(t, "food", resp.Category)
	assert.Empty(t, resp.StickerURL)
	assert.Equal(t, now, resp.CreatedAt)
	assert.Equal(t, now, resp.UpdatedAt)
}
