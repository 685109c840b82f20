package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/storage"
)

const maxBackoff = time.Hour

// Publisher отправляет уведомление во внешнюю шину
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Booker бронирует курьера для оплаченного заказа
type Booker interface {
	BookOrderShipments(ctx context.Context, orderID int64) error
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
}

// Worker разбирает таблицу outbox_messages. Доставка at-least-once:
// обработчики обязаны быть идемпотентными.
type Worker struct {
	log       *slog.Logger
	db        *sql.DB
	repo      storage.OutboxStorage
	publisher Publisher
	booker    Booker
	cfg       Config
	now       func() time.Time
}

func NewWorker(log *slog.Logger, db *sql.DB, repo storage.OutboxStorage, publisher Publisher, booker Booker, cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 5 * time.Second
	}
	return &Worker{
		log:       log,
		db:        db,
		repo:      repo,
		publisher: publisher,
		booker:    booker,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run опрашивает очередь, пока не отменят контекст
func (w *Worker) Run(ctx context.Context) {
	const op = "outbox.Worker.Run"
	logger := w.log.With(slog.String("op", op))
	logger.Info("outbox worker started", slog.Duration("pollInterval", w.cfg.PollInterval))

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// полный батч — сразу берём следующий, не дожидаясь тика
		for {
			n, err := w.ProcessBatch(ctx)
			if err != nil {
				logger.Error("failed to process outbox batch", slog.Any("error", err))
				break
			}
			if n < w.cfg.BatchSize || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch забирает до BatchSize готовых сообщений и обрабатывает их в одной транзакции.
// Строки заблокированы (SKIP LOCKED), поэтому параллельные воркеры их не увидят.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	const op = "outbox.Worker.ProcessBatch"
	logger := w.log.With(slog.String("op", op))

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	batch, err := w.repo.ClaimBatchTx(ctx, tx, w.cfg.BatchSize)
	if err != nil {
		rollback(tx, logger)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(batch) == 0 {
		rollback(tx, logger)
		return 0, nil
	}

	for _, msg := range batch {
		msgLogger := logger.With(
			slog.Int64("messageID", msg.ID),
			slog.String("kind", string(msg.Kind)),
			slog.String("dedupKey", msg.DedupKey),
		)

		if err := w.settle(ctx, tx, msg, w.dispatch(ctx, msg), msgLogger); err != nil {
			rollback(tx, logger)
			return 0, fmt.Errorf("%s: failed to update message %d: %w", op, msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	logger.Debug("outbox batch processed", slog.Int("count", len(batch)))
	return len(batch), nil
}

func (w *Worker) dispatch(ctx context.Context, msg *models.OutboxMessage) error {
	switch msg.Kind {
	case models.OutboxBookShipments:
		var p models.BookShipmentsPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return permanent(fmt.Errorf("invalid payload: %w", err))
		}
		return w.booker.BookOrderShipments(ctx, p.OrderID)
	case models.OutboxNotification:
		return w.publisher.Publish(ctx, msg.DedupKey, msg.Payload)
	default:
		return permanent(fmt.Errorf("unknown kind %q", msg.Kind))
	}
}

// settle фиксирует результат обработки: done, повтор с задержкой или failed
func (w *Worker) settle(ctx context.Context, tx *sql.Tx, msg *models.OutboxMessage, procErr error, logger *slog.Logger) error {
	if procErr == nil {
		return w.repo.MarkDoneTx(ctx, tx, msg.ID)
	}

	attempts := msg.Attempts + 1
	if isPermanent(procErr) || attempts >= w.cfg.MaxAttempts {
		logger.Error("outbox message failed permanently",
			slog.Int("attempts", attempts),
			slog.Any("error", procErr),
		)
		return w.repo.MarkFailedTx(ctx, tx, msg.ID, procErr.Error())
	}

	delay := Backoff(w.cfg.BaseBackoff, attempts)
	logger.Warn("outbox message will be retried",
		slog.Int("attempts", attempts),
		slog.Duration("delay", delay),
		slog.Any("error", procErr),
	)
	return w.repo.MarkRetryTx(ctx, tx, msg.ID, procErr.Error(), w.now().Add(delay))
}

// Backoff возвращает base * 2^(attempts-1), не больше часа
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// permanent помечает ошибку, повтор которой бессмыслен
func permanent(err error) error { return permanentError{err: err} }

func isPermanent(err error) bool {
	var pe permanentError
	return errors.As(err, &pe)
}

func rollback(tx *sql.Tx, logger *slog.Logger) {
	if err := tx.Rollback(); err != nil {
		logger.Error("failed to rollback transaction", slog.Any("error", err))
	}
}
