package outbox_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutboxRepo struct {
	mu      sync.Mutex
	pending []*models.OutboxMessage
	claimed int
	done    []int64
	failed  map[int64]string
	retries map[int64]time.Time
	markErr error
}

func newFakeOutboxRepo(msgs ...*models.OutboxMessage) *fakeOutboxRepo {
	return &fakeOutboxRepo{
		pending: msgs,
		failed:  make(map[int64]string),
		retries: make(map[int64]time.Time),
	}
}

func (f *fakeOutboxRepo) EnqueueTx(ctx context.Context, tx *sql.Tx, msg *models.OutboxMessage) error {
	return f.Enqueue(ctx, msg)
}

func (f *fakeOutboxRepo) Enqueue(ctx context.Context, msg *models.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, msg)
	return nil
}

func (f *fakeOutboxRepo) ClaimBatchTx(ctx context.Context, tx *sql.Tx, limit int) ([]*models.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := min(limit, len(f.pending))
	batch := f.pending[:n]
	f.pending = f.pending[n:]
	f.claimed += n
	return batch, nil
}

func (f *fakeOutboxRepo) MarkDoneTx(ctx context.Context, tx *sql.Tx, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.done = append(f.done, id)
	return nil
}

func (f *fakeOutboxRepo) MarkRetryTx(ctx context.Context, tx *sql.Tx, id int64, lastErr string, availableAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries[id] = availableAt
	return nil
}

func (f *fakeOutboxRepo) MarkFailedTx(ctx context.Context, tx *sql.Tx, id int64, lastErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = lastErr
	return nil
}

type fakePublisher struct {
	keys []string
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, key string, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	return nil
}

type fakeBooker struct {
	orders []int64
	err    error
}

func (b *fakeBooker) BookOrderShipments(ctx context.Context, orderID int64) error {
	b.orders = append(b.orders, orderID)
	return b.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestProcessBatch_Dispatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newFakeOutboxRepo(
		&models.OutboxMessage{ID: 1, Kind: models.OutboxBookShipments, DedupKey: "order:7:book", Payload: []byte(`{"order_id":7}`)},
		&models.OutboxMessage{ID: 2, Kind: models.OutboxNotification, DedupKey: "order:7:paid", Payload: []byte(`{"event":"order.paid"}`)},
	)
	pub := &fakePublisher{}
	booker := &fakeBooker{}
	w := outbox.NewWorker(discardLogger(), db, repo, pub, booker, outbox.Config{BatchSize: 10})

	mock.ExpectBegin()
	mock.ExpectCommit()

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{7}, booker.orders)
	assert.Equal(t, []string{"order:7:paid"}, pub.keys)
	assert.Equal(t, []int64{1, 2}, repo.done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessBatch_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	w := outbox.NewWorker(discardLogger(), db, newFakeOutboxRepo(), &fakePublisher{}, &fakeBooker{}, outbox.Config{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessBatch_RetryWithBackoff(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newFakeOutboxRepo(&models.OutboxMessage{
		ID: 3, Kind: models.OutboxNotification, DedupKey: "order:1:placed", Attempts: 2,
	})
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	w := outbox.NewWorker(discardLogger(), db, repo, pub, &fakeBooker{}, outbox.Config{
		MaxAttempts: 5,
		BaseBackoff: time.Second,
	})

	mock.ExpectBegin()
	mock.ExpectCommit()

	before := time.Now()
	_, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)

	// третья попытка: 1s * 2^2
	next, ok := repo.retries[3]
	require.True(t, ok)
	assert.WithinDuration(t, before.Add(4*time.Second), next, time.Second)
	assert.Empty(t, repo.done)
	assert.Empty(t, repo.failed)
}

func TestProcessBatch_FailsAfterMaxAttempts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newFakeOutboxRepo(&models.OutboxMessage{
		ID: 4, Kind: models.OutboxBookShipments, Payload: []byte(`{"order_id":9}`), Attempts: 4,
	})
	booker := &fakeBooker{err: errors.New("COURIER_ERROR")}
	w := outbox.NewWorker(discardLogger(), db, repo, &fakePublisher{}, booker, outbox.Config{MaxAttempts: 5})

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "COURIER_ERROR", repo.failed[4])
	assert.Empty(t, repo.retries)
}

func TestProcessBatch_PermanentErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newFakeOutboxRepo(
		&models.OutboxMessage{ID: 5, Kind: models.OutboxBookShipments, Payload: []byte(`not json`)},
		&models.OutboxMessage{ID: 6, Kind: "unknown.kind"},
	)
	booker := &fakeBooker{}
	w := outbox.NewWorker(discardLogger(), db, repo, &fakePublisher{}, booker, outbox.Config{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Contains(t, repo.failed, int64(5))
	assert.Contains(t, repo.failed, int64(6))
	assert.Empty(t, booker.orders)
}

func TestProcessBatch_MarkFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newFakeOutboxRepo(&models.OutboxMessage{ID: 7, Kind: models.OutboxNotification, DedupKey: "k"})
	repo.markErr = errors.New("db down")
	w := outbox.NewWorker(discardLogger(), db, repo, &fakePublisher{}, &fakeBooker{}, outbox.Config{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := w.ProcessBatch(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StopsOnCancel(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 100; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}
	w := outbox.NewWorker(discardLogger(), db, newFakeOutboxRepo(), &fakePublisher{}, &fakeBooker{}, outbox.Config{
		PollInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{4, 40 * time.Second},
		{20, time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outbox.Backoff(5*time.Second, tt.attempts), "attempts=%d", tt.attempts)
	}
}
