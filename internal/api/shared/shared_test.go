package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	t.Run("set_and_get", func(t *testing.T) {
		ctx := SetTraceID(context.Background())
		traceID := GetTraceID(ctx)
		assert.Len(t, traceID, 32)
	})

	t.Run("absent", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
	})

	t.Run("unique_per_request", func(t *testing.T) {
		a := GetTraceID(SetTraceID(context.Background()))
		b := GetTraceID(SetTraceID(context.Background()))
		assert.NotEqual(t, a, b)
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Word string `json:"word"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"word":"gato"}`))
		var p payload
		require.NoError(t, DecodeJSON(req, &p))
		assert.Equal(t, "gato", p.Word)
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"word":`))
		var p payload
		assert.Error(t, DecodeJSON(req, &p))
	})
}

func TestValidateRequest(t *testing.T) {
	type payload struct {
		Word       string `validate:"required"`
		Difficulty int    `validate:"gte=1,lte=3"`
	}

	assert.NoError(t, ValidateRequest(payload{Word: "gato", Difficulty: 2}))
	assert.Error(t, ValidateRequest(payload{Word: "", Difficulty: 2}))
	assert.Error(t, ValidateRequest(payload{Word: "gato", Difficulty: 9}))
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards", nil)
	req = req.WithContext(SetTraceID(req.Context()))
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "Card not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Card not found", resp.Error)
	assert.Len(t, resp.TraceID, 32)
}

func TestRespondWithErrorAndLog_SanitizesErrorDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stickers", nil)
	w := httptest.NewRecorder()

	internal := errors.New("pq: connection to postgres://user:hunter2@db:5432 refused")
	RespondWithErrorAndLog(w, req, http.StatusInternalServerError, "Failed to enqueue sticker job", internal)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "hunter2", "credentials must not leak to the client")
	assert.NotContains(t, body, "postgres://")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "Failed to enqueue sticker job", resp.Error)
}
