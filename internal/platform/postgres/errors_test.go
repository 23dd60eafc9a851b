package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/languagesgo/stickerforge/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{
			name:     "nil_error",
			input:    nil,
			expected: nil,
		},
		{
			name:     "no_rows",
			input:    sql.ErrNoRows,
			expected: store.ErrNotFound,
		},
		{
			name:     "unique_violation",
			input:    &pgconn.PgError{Code: uniqueViolationCode},
			expected: store.ErrDuplicate,
		},
		{
			name:     "foreign_key_violation",
			input:    &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "sticker_jobs_card_id_fkey"},
			expected: store.ErrInvalidEntity,
		},
		{
			name:     "check_violation",
			input:    &pgconn.PgError{Code: checkViolationCode, ConstraintName: "sticker_jobs_status_check"},
			expected: store.ErrInvalidEntity,
		},
		{
			name:     "not_null_violation",
			input:    &pgconn.PgError{Code: notNullViolationCode, ColumnName: "word"},
			expected: store.ErrInvalidEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapError(tt.input)
			if tt.expected == nil {
				assert.NoError(t, mapped)
				return
			}
			assert.ErrorIs(t, mapped, tt.expected)
		})
	}

	t.Run("unrecognized_errors_pass_through", func(t *testing.T) {
		err := errors.New("connection reset by peer")
		assert.Equal(t, err, mapError(err))
	})

	t.Run("wrapped_no_rows", func(t *testing.T) {
		err := fmt.Errorf("query failed: %w", sql.ErrNoRows)
		assert.ErrorIs(t, mapError(err), store.ErrNotFound)
	})
}
