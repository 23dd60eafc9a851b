package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/languagesgo/stickerforge/internal/domain"
	"github.com/languagesgo/stickerforge/internal/generation"
	"github.com/languagesgo/stickerforge/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCard(t *testing.T, word string) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(word, word+"-en", "es", 1, "nature")
	require.NoError(t, err)
	return card
}

// fastConfig keeps the loop snappy so tests settle quickly.
func fastConfig() Config {
	return Config{
		BatchSize:       5,
		InterBatchDelay: 10 * time.Millisecond,
		JobTimeout:      time.Second,
	}
}

func newTestQueue(t *testing.T, cards *MockCardStore, jobs *MockJobStore, gen *MockGenerator, cfg Config) *StickerQueue {
	t.Helper()
	q, err := New(cards, jobs, gen, nil, testLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(q.Stop)
	return q
}

// waitTerminal polls until the job reaches a terminal state.
func waitTerminal(t *testing.T, q *StickerQueue, jobID uuid.UUID) domain.StickerJob {
	t.Helper()
	var snapshot domain.StickerJob
	require.Eventually(t, func() bool {
		s, err := q.JobStatus(context.Background(), jobID)
		if err != nil {
			return false
		}
		snapshot = s
		return s.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond, "job %s never settled", jobID)
	return snapshot
}

func TestNewValidatesDependencies(t *testing.T) {
	t.Parallel()

	_, err := New(nil, NewMockJobStore(), NewMockGenerator(), nil, testLogger(), Config{})
	assert.Error(t, err)

	_, err = New(NewMockCardStore(), nil, NewMockGenerator(), nil, testLogger(), Config{})
	assert.Error(t, err)

	_, err = New(NewMockCardStore(), NewMockJobStore(), nil, nil, testLogger(), Config{})
	assert.Error(t, err)

	_, err = New(NewMockCardStore(), NewMockJobStore(), NewMockGenerator(), nil, nil, Config{})
	assert.Error(t, err)
}

func TestEnqueueHappyPath(t *testing.T) {
	t.Parallel()

	card := testCard(t, "tree")
	cards := NewMockCardStore(card)
	jobs := NewMockJobStore()
	gen := NewMockGenerator()
	q := newTestQueue(t, cards, jobs, gen, fastConfig())

	jobID, err := q.Enqueue(context.Background(), card)
	require.NoError(t, err)

	snapshot := waitTerminal(t, q, jobID)
	assert.Equal(t, domain.JobStatusCompleted, snapshot.Status)
	assert.Contains(t, snapshot.StickerURL, "/stickers/es_tree_")
	assert.NotNil(t, snapshot.CompletedAt)

	url, ok := cards.StickerURLFor(card.ID)
	require.True(t, ok, "card sticker URL should be written on success")
	assert.Equal(t, snapshot.StickerURL, url)

	// The mirror saw the terminal state too
	mirrored, ok := jobs.Stored(jobID)
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusCompleted, mirrored.Status)
}

func TestEnqueueRejectsInvalidCard(t *testing.T) {
	t.Parallel()

	q := newTestQueue(t, NewMockCardStore(), NewMockJobStore(), NewMockGenerator(), fastConfig())

	_, err := q.Enqueue(context.Background(), nil)
	assert.Error(t, err)

	// A card with an empty word never becomes a job
	card := &domain.Card{ID: uuid.New(), Language: "es", Category: "nature"}
	_, err = q.Enqueue(context.Background(), card)
	assert.ErrorIs(t, err, domain.ErrJobWordEmpty)
}

func TestCardNotFoundFailsJob(t *testing.T) {
	t.Parallel()

	card := testCard(t, "rio")
	cards := NewMockCardStore() // card deliberately absent
	jobs := NewMockJobStore()
	gen := NewMockGenerator()
	q := newTestQueue(t, cards, jobs, gen, fastConfig())

	jobID, err := q.Enqueue(context.Background(), card)
	require.NoError(t, err)

	snapshot := waitTerminal(t, q, jobID)
	assert.Equal(t, domain.JobStatusFailed, snapshot.Status)
	assert.Equal(t, "card not found", snapshot.ErrorMessage)
	assert.Empty(t, snapshot.StickerURL)
	assert.Equal(t, 0, gen.Calls(), "generator must not run for a missing card")
}

func TestFailedGenerationLeavesCardUntouched(t *testing.T) {
	t.Parallel()

	card := testCard(t, "sol")
	cards := NewMockCardStore(card)
	jobs := NewMockJobStore()
	gen := NewMockGenerator()
	gen.GenerateFn = func(ctx context.Context, word, language, category string) (*generation.Sticker, error) {
		return nil, generation.ErrTextInsteadOfImage
	}
	q := newTestQueue(t, cards, jobs, gen, fastConfig())

	jobID, err := q.Enqueue(context.Background(), card)
	require.NoError(t, err)

	snapshot := waitTerminal(t, q, jobID)
	assert.Equal(t, domain.JobStatusFailed, snapshot.Status)
	assert.Contains(t, snapshot.ErrorMessage, "text instead of image")
	assert.Empty(t, snapshot.StickerURL)

	_, ok := cards.StickerURLFor(card.ID)
	assert.False(t, ok, "card must not be updated on failure")
}

func TestBatchIsolationOneFailureDoesNotPoisonOthers(t *testing.T) {
	t.Parallel()

	words := []string{"uno", "dos", "tres", "cuatro", "cinco", "seis"}
	var allCards []*domain.Card
	for _, w := range words {
		allCards = append(allCards, testCard(t, w))
	}
	poisoned := allCards[2]

	cards := NewMockCardStore(allCards...)
	jobs := NewMockJobStore()
	gen := NewMockGenerator()
	defaultFn := gen.GenerateFn
	gen.GenerateFn = func(ctx context.Context, word, language, category string) (*generation.Sticker, error) {
		if word == poisoned.Word {
			return nil, fmt.Errorf("%w: upstream hiccup", generation.ErrTransientFailure)
		}
		return defaultFn(ctx, word, language, category)
	}
	q := newTestQueue(t, cards, jobs, gen, fastConfig())

	jobIDs := make(map[string]uuid.UUID)
	for _, card := range allCards {
		id, err := q.Enqueue(context.Background(), card)
		require.NoError(t, err)
		jobIDs[card.Word] = id
	}

	for _, card := range allCards {
		snapshot := waitTerminal(t, q, jobIDs[card.Word])
		if card.Word == poisoned.Word {
			assert.Equal(t, domain.JobStatusFailed, snapshot.Status)
			_, ok := cards.StickerURLFor(card.ID)
			assert.False(t, ok)
			continue
		}
		assert.Equal(t, domain.JobStatusCompleted, snapshot.Status, "word %s", card.Word)
		_, ok := cards.StickerURLFor(card.ID)
		assert.True(t, ok, "word %s", card.Word)
	}
}

func TestBatchSizeBoundsConcurrency(t *testing.T) {
	t.Parallel()

	const total = 12
	const batchSize = 4

	var allCards []*domain.Card
	for i := 0; i < total; i++ {
		allCards = append(allCards, testCard(t, fmt.Sprintf("palabra%d", i)))
	}

	var mu sync.Mutex
	inFlight, peak := 0, 0

	cards := NewMockCardStore(allCards...)
	gen := NewMockGenerator()
	defaultFn := gen.GenerateFn
	gen.GenerateFn = func(ctx context.Context, word, language, category string) (*generation.Sticker, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return defaultFn(ctx, word, language, category)
	}

	cfg := fastConfig()
	cfg.BatchSize = batchSize
	q := newTestQueue(t, cards, NewMockJobStore(), gen, cfg)

	ids := make([]uuid.UUID, 0, total)
	for _, card := range allCards {
		id, err := q.Enqueue(context.Background(), card)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, id := range ids {
		waitTerminal(t, q, id)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, batchSize, "no more than one batch may run at once")
	assert.Greater(t, peak, 1, "jobs within a batch run concurrently")
}

func TestJobTimeout(t *testing.T) {
	t.Parallel()

	card := testCard(t, "luna")
	cards := NewMockCardStore(card)
	gen := NewMockGenerator()
	gen.GenerateFn = func(ctx context.Context, word, language, category string) (*generation.Sticker, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	cfg := fastConfig()
	cfg.JobTimeout = 30 * time.Millisecond
	q := newTestQueue(t, cards, NewMockJobStore(), gen, cfg)

	jobID, err := q.Enqueue(context.Background(), card)
	require.NoError(t, err)

	snapshot := waitTerminal(t, q, jobID)
	assert.Equal(t, domain.JobStatusFailed, snapshot.Status)
	assert.Contains(t, snapshot.ErrorMessage, "timed out")
}

func TestMirrorFailuresAreNotFatal(t *testing.T) {
	t.Parallel()

	card := testCard(t, "mar")
	cards := NewMockCardStore(card)
	jobs := NewMockJobStore()
	jobs.SaveFn = func(ctx context.Context, job *domain.StickerJob) error {
		return errors.New("postgres down")
	}
	jobs.UpdateFn = func(ctx context.Context, job *domain.StickerJob) error {
		return errors.New("postgres down")
	}
	q := newTestQueue(t, cards, jobs, NewMockGenerator(), fastConfig())

	jobID, err := q.Enqueue(context.Background(), card)
	require.NoError(t, err, "mirror failure must not surface to the caller")

	snapshot := waitTerminal(t, q, jobID)
	assert.Equal(t, domain.JobStatusCompleted, snapshot.Status)

	url, ok := cards.StickerURLFor(card.ID)
	require.True(t, ok)
	assert.Contains(t, url, "/stickers/")
}

func TestJobStatusUnknownID(t *testing.T) {
	t.Parallel()

	q := newTestQueue(t, NewMockCardStore(), NewMockJobStore(), NewMockGenerator(), fastConfig())

	_, err := q.JobStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestJobStatusFallsBackToMirror(t *testing.T) {
	t.Parallel()

	card := testCard(t, "flor")
	cards := NewMockCardStore(card)
	jobs := NewMockJobStore()
	q := newTestQueue(t, cards, jobs, NewMockGenerator(), fastConfig())

	jobID, err := q.Enqueue(context.Background(), card)
	require.NoError(t, err)
	waitTerminal(t, q, jobID)

	// Once settled the job is dropped from the backlog; status reads must
	// keep working through the mirror.
	require.Eventually(t, func() bool {
		q.mu.Lock()
		_, inBacklog := q.backlog[jobID]
		q.mu.Unlock()
		return !inBacklog
	}, time.Second, 5*time.Millisecond)

	snapshot, err := q.JobStatus(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, snapshot.Status)
}

func TestPendingCount(t *testing.T) {
	t.Parallel()

	card := testCard(t, "nube")
	cards := NewMockCardStore(card)
	gen := NewMockGenerator()
	release := make(chan struct{})
	defaultFn := gen.GenerateFn
	gen.GenerateFn = func(ctx context.Context, word, language, category string) (*generation.Sticker, error) {
		<-release
		return defaultFn(ctx, word, language, category)
	}
	q := newTestQueue(t, cards, NewMockJobStore(), gen, fastConfig())

	assert.Equal(t, 0, q.PendingCount())

	jobID, err := q.Enqueue(context.Background(), card)
	require.NoError(t, err)

	// Once the loop picks the job up it is processing, not pending
	require.Eventually(t, func() bool {
		s, err := q.JobStatus(context.Background(), jobID)
		return err == nil && s.Status == domain.JobStatusProcessing
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, q.PendingCount())

	close(release)
	waitTerminal(t, q, jobID)
	assert.Equal(t, 0, q.PendingCount())
}

func TestEnqueueNewCardsSkipsManagedStickers(t *testing.T) {
	t.Parallel()

	fresh := testCard(t, "gato")
	stickered := testCard(t, "perro")
	stickered.StickerURL = "https://cdn.example.test/storage/v1/object/public/stickers/es_perro_1.png"
	external := testCard(t, "pez")
	external.StickerURL = "https://images.example.test/clipart/fish.png"

	cards := NewMockCardStore(fresh, stickered, external)
	gen := NewMockGenerator()
	q := newTestQueue(t, cards, NewMockJobStore(), gen, fastConfig())

	jobIDs := q.EnqueueNewCards(context.Background(), []*domain.Card{fresh, stickered, external, nil})
	assert.Len(t, jobIDs, 2, "managed-sticker card and nil card are skipped, external URL is not")

	for _, id := range jobIDs {
		waitTerminal(t, q, id)
	}
	assert.Equal(t, 2, gen.Calls())
}

func TestBackfillEnqueuesCardsMissingStickers(t *testing.T) {
	t.Parallel()

	fresh := testCard(t, "gato")
	alsoFresh := testCard(t, "flor")
	stickered := testCard(t, "perro")
	stickered.StickerURL = "https://cdn.example.test/storage/v1/object/public/stickers/es_perro_1.png"

	cards := NewMockCardStore(fresh, alsoFresh, stickered)
	gen := NewMockGenerator()
	q := newTestQueue(t, cards, NewMockJobStore(), gen, fastConfig())

	jobIDs, err := q.Backfill(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, jobIDs, 2, "only cards without managed artwork are backfilled")

	for _, id := range jobIDs {
		job := waitTerminal(t, q, id)
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
	}
}

func TestRecoverReadmitsUnfinishedJobs(t *testing.T) {
	t.Parallel()

	pendingCard := testCard(t, "pan")
	interruptedCard := testCard(t, "vino")
	cards := NewMockCardStore(pendingCard, interruptedCard)
	jobs := NewMockJobStore()

	pendingJob, err := domain.NewStickerJob(pendingCard)
	require.NoError(t, err)
	jobs.Seed(pendingJob)

	interruptedJob, err := domain.NewStickerJob(interruptedCard)
	require.NoError(t, err)
	require.NoError(t, interruptedJob.MarkProcessing())
	jobs.Seed(interruptedJob)

	doneJob, err := domain.NewStickerJob(pendingCard)
	require.NoError(t, err)
	require.NoError(t, doneJob.MarkProcessing())
	require.NoError(t, doneJob.MarkCompleted("https://cdn.example.test/storage/v1/object/public/stickers/done.png"))
	jobs.Seed(doneJob)

	q := newTestQueue(t, cards, jobs, NewMockGenerator(), fastConfig())
	require.NoError(t, q.Start(context.Background()))

	pendingSnapshot := waitTerminal(t, q, pendingJob.ID)
	assert.Equal(t, domain.JobStatusCompleted, pendingSnapshot.Status)

	interruptedSnapshot := waitTerminal(t, q, interruptedJob.ID)
	assert.Equal(t, domain.JobStatusCompleted, interruptedSnapshot.Status)

	// Terminal rows are left alone
	doneSnapshot, err := q.JobStatus(context.Background(), doneJob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, doneSnapshot.Status)
}

func TestRecoverRefreshesCachedSnapshots(t *testing.T) {
	card := testCard(t, "nube")
	job, err := domain.NewStickerJob(card)
	require.NoError(t, err)
	require.NoError(t, job.MarkProcessing())

	jobs := NewMockJobStore()
	jobs.Seed(job)

	// Simulate a cache entry left behind by a run that died mid-job.
	statuses := NewMockCache()
	stale, err := json.Marshal(job.Snapshot())
	require.NoError(t, err)
	require.NoError(t, statuses.SetJobSnapshot(context.Background(), job.ID, stale, time.Minute))

	gen := NewMockGenerator()
	gen.GenerateFn = func(ctx context.Context, _, _, _ string) (*generation.Sticker, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	q, err := New(NewMockCardStore(card), jobs, gen, statuses, testLogger(), fastConfig())
	require.NoError(t, err)
	t.Cleanup(q.Stop)

	require.NoError(t, q.Recover(context.Background()))

	history := statuses.SnapshotsFor(job.ID)
	require.GreaterOrEqual(t, len(history), 2)

	var refreshed domain.StickerJob
	require.NoError(t, json.Unmarshal(history[1], &refreshed))
	assert.Equal(t, domain.JobStatusPending, refreshed.Status)
}

func TestStopLeavesInFlightJobsRecoverable(t *testing.T) {
	card := testCard(t, "sol")
	jobs := NewMockJobStore()

	started := make(chan struct{})
	gen := NewMockGenerator()
	gen.GenerateFn = func(ctx context.Context, _, _, _ string) (*generation.Sticker, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	q, err := New(NewMockCardStore(card), jobs, gen, nil, testLogger(), fastConfig())
	require.NoError(t, err)

	jobID, err := q.Enqueue(context.Background(), card)
	require.NoError(t, err)

	<-started
	q.Stop()

	// The interrupted job must stay processing, not be marked failed
	// with a spurious context error, so Recover picks it up next start.
	stored, ok := jobs.Stored(jobID)
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusProcessing, stored.Status)

	snapshot, err := q.JobStatus(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, snapshot.Status)
}
