package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/languagesgo/stickerforge/internal/config"
)

// cacheControlImmutable is sent with every upload. Keys are never reused, so
// clients and CDNs may cache sticker objects for a year.
const cacheControlImmutable = "31536000"

// SupabaseStore implements ObjectStore against the Supabase storage REST API.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSupabaseStore creates a SupabaseStore from configuration. Callers may
// pass a nil HTTP client; one with a sensible timeout is created.
func NewSupabaseStore(cfg config.StorageConfig, httpClient *http.Client, logger *slog.Logger) (*SupabaseStore, error) {
	if cfg.SupabaseURL == "" {
		return nil, errors.New("supabase URL cannot be empty")
	}
	if cfg.ServiceKey == "" {
		return nil, errors.New("service key cannot be empty")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SupabaseStore{
		baseURL:    strings.TrimRight(cfg.SupabaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "supabase_store")),
	}, nil
}

// Ensure SupabaseStore implements ObjectStore
var _ ObjectStore = (*SupabaseStore)(nil)

// Upload stores data under key in the configured bucket. Upsert is left
// disabled: a key collision is a bug in key generation and should surface as
// an error rather than silently replacing artwork.
func (s *SupabaseStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", cacheControlImmutable)
	req.Header.Set("x-upsert", "false")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return fmt.Errorf("upload object: status %d", resp.StatusCode)
		}
		return fmt.Errorf("upload object: status %d: %s", resp.StatusCode, msg)
	}

	s.logger.Debug("uploaded object",
		"bucket", s.bucket,
		"key", key,
		"size_bytes", len(data))

	return nil
}

// PublicURL returns the public object URL for a key in the sticker bucket.
func (s *SupabaseStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}
