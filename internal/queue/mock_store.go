package queue

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/languagesgo/stickerforge/internal/domain"
	"github.com/languagesgo/stickerforge/internal/generation"
	"github.com/languagesgo/stickerforge/internal/store"
)

// MockCardStore implements the store.CardStore interface for testing
type MockCardStore struct {
	mutex      sync.RWMutex
	cards      map[uuid.UUID]*domain.Card
	stickerURL map[uuid.UUID]string

	GetFn              func(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	UpdateStickerURLFn func(ctx context.Context, id uuid.UUID, stickerURL string) error
}

// NewMockCardStore creates a new MockCardStore with default implementations
func NewMockCardStore(cards ...*domain.Card) *MockCardStore {
	s := &MockCardStore{
		cards:      make(map[uuid.UUID]*domain.Card),
		stickerURL: make(map[uuid.UUID]string),
	}
	for _, card := range cards {
		s.cards[card.ID] = card
	}

	s.GetFn = func(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
		s.mutex.RLock()
		defer s.mutex.RUnlock()
		card, ok := s.cards[id]
		if !ok {
			return nil, store.ErrCardNotFound
		}
		return card, nil
	}

	s.UpdateStickerURLFn = func(ctx context.Context, id uuid.UUID, stickerURL string) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		if _, ok := s.cards[id]; !ok {
			return store.ErrCardNotFound
		}
		s.stickerURL[id] = stickerURL
		return nil
	}

	return s
}

// StickerURLFor returns the sticker URL recorded for a card, if any.
func (s *MockCardStore) StickerURLFor(id uuid.UUID) (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	url, ok := s.stickerURL[id]
	return url, ok
}

func (s *MockCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, card := range cards {
		s.cards[card.ID] = card
	}
	return nil
}

func (s *MockCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.GetFn(ctx, id)
}

func (s *MockCardStore) UpdateStickerURL(ctx context.Context, id uuid.UUID, stickerURL string) error {
	return s.UpdateStickerURLFn(ctx, id, stickerURL)
}

func (s *MockCardStore) ListMissingStickers(ctx context.Context, limit int) ([]*domain.Card, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var missing []*domain.Card
	for _, card := range s.cards {
		url := card.StickerURL
		if stored, ok := s.stickerURL[card.ID]; ok {
			url = stored
		}
		if !domain.HasManagedSticker(url) {
			missing = append(missing, card)
		}
		if limit > 0 && len(missing) == limit {
			break
		}
	}
	return missing, nil
}

// WithTx implements store.CardStore.WithTx for the mock store
func (s *MockCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return s
}

// MockJobStore implements the store.JobStore interface for testing
type MockJobStore struct {
	mutex sync.RWMutex
	jobs  map[uuid.UUID]domain.StickerJob

	SaveFn   func(ctx context.Context, job *domain.StickerJob) error
	UpdateFn func(ctx context.Context, job *domain.StickerJob) error
}

// NewMockJobStore creates a new MockJobStore with default implementations
func NewMockJobStore() *MockJobStore {
	s := &MockJobStore{
		jobs: make(map[uuid.UUID]domain.StickerJob),
	}

	s.SaveFn = func(ctx context.Context, job *domain.StickerJob) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		s.jobs[job.ID] = job.Snapshot()
		return nil
	}

	s.UpdateFn = func(ctx context.Context, job *domain.StickerJob) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		s.jobs[job.ID] = job.Snapshot()
		return nil
	}

	return s
}

// Seed places a job row directly into the mock mirror.
func (s *MockJobStore) Seed(job *domain.StickerJob) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.jobs[job.ID] = job.Snapshot()
}

// Stored returns the mirrored row for a job, if any.
func (s *MockJobStore) Stored(id uuid.UUID) (domain.StickerJob, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

func (s *MockJobStore) SaveJob(ctx context.Context, job *domain.StickerJob) error {
	return s.SaveFn(ctx, job)
}

func (s *MockJobStore) UpdateJob(ctx context.Context, job *domain.StickerJob) error {
	return s.UpdateFn(ctx, job)
}

func (s *MockJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StickerJob, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	snapshot := job.Snapshot()
	return &snapshot, nil
}

func (s *MockJobStore) ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.StickerJob, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var matched []*domain.StickerJob
	for _, job := range s.jobs {
		if job.Status == status {
			snapshot := job.Snapshot()
			matched = append(matched, &snapshot)
		}
	}
	return matched, nil
}

// WithTx implements store.JobStore.WithTx for the mock store
func (s *MockJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return s
}

// MockGenerator implements the generation.Generator interface for testing
type MockGenerator struct {
	mutex sync.Mutex
	calls int

	GenerateFn func(ctx context.Context, word, language, category string) (*generation.Sticker, error)
}

// NewMockGenerator creates a MockGenerator whose default implementation
// returns a managed-store URL derived from the inputs.
func NewMockGenerator() *MockGenerator {
	g := &MockGenerator{}
	g.GenerateFn = func(ctx context.Context, word, language, category string) (*generation.Sticker, error) {
		key := fmt.Sprintf("%s_%s_1700000000000.png", language, word)
		return &generation.Sticker{
			URL: "https://cdn.example.test/storage/v1/object/public/stickers/" + key,
			Key: key,
		}, nil
	}
	return g
}

func (g *MockGenerator) GenerateSticker(
	ctx context.Context,
	word, language, category string,
) (*generation.Sticker, error) {
	g.mutex.Lock()
	g.calls++
	g.mutex.Unlock()
	return g.GenerateFn(ctx, word, language, category)
}

// Calls reports how many times GenerateSticker was invoked.
func (g *MockGenerator) Calls() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.calls
}

// MockCache implements the cache.Cache interface for testing. It records
// every snapshot write per job so tests can assert on write order.
type MockCache struct {
	mutex     sync.RWMutex
	entries   map[string][]byte
	snapshots map[uuid.UUID][][]byte
}

// NewMockCache creates an empty MockCache.
func NewMockCache() *MockCache {
	return &MockCache{
		entries:   make(map[string][]byte),
		snapshots: make(map[uuid.UUID][][]byte),
	}
}

// SnapshotsFor returns every snapshot payload written for the job, in
// write order.
func (c *MockCache) SnapshotsFor(id uuid.UUID) [][]byte {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return append([][]byte(nil), c.snapshots[id]...)
}

func (c *MockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = append([]byte(nil), value...)
	return nil
}

func (c *MockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *MockCache) Delete(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MockCache) Ping(context.Context) error { return nil }

func (c *MockCache) SetJobSnapshot(_ context.Context, jobID uuid.UUID, snapshot []byte, _ time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.snapshots[jobID] = append(c.snapshots[jobID], append([]byte(nil), snapshot...))
	return nil
}

func (c *MockCache) GetJobSnapshot(_ context.Context, jobID uuid.UUID) ([]byte, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	history := c.snapshots[jobID]
	if len(history) == 0 {
		return nil, false, nil
	}
	return history[len(history)-1], true, nil
}
