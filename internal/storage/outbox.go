package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/linemk/marketplace/internal/domain/models"
)

// OutboxStorage — очередь отложенных побочных эффектов поверх таблицы outbox_messages.
// Повторная вставка с тем же dedup_key игнорируется.
type OutboxStorage interface {
	EnqueueTx(ctx context.Context, tx *sql.Tx, msg *models.OutboxMessage) error
	Enqueue(ctx context.Context, msg *models.OutboxMessage) error
	// ClaimBatchTx берёт готовые к обработке сообщения, пропуская заблокированные другими воркерами
	ClaimBatchTx(ctx context.Context, tx *sql.Tx, limit int) ([]*models.OutboxMessage, error)
	MarkDoneTx(ctx context.Context, tx *sql.Tx, id int64) error
	MarkRetryTx(ctx context.Context, tx *sql.Tx, id int64, lastErr string, availableAt time.Time) error
	MarkFailedTx(ctx context.Context, tx *sql.Tx, id int64, lastErr string) error
}

type outboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) OutboxStorage {
	return &outboxRepository{db: db}
}

const enqueueQuery = `INSERT INTO outbox_messages (kind, dedup_key, payload, status)
	VALUES ($1, $2, $3, 'pending')
	ON CONFLICT (dedup_key) DO NOTHING`

func (r *outboxRepository) EnqueueTx(ctx context.Context, tx *sql.Tx, msg *models.OutboxMessage) error {
	if _, err := tx.ExecContext(ctx, enqueueQuery, msg.Kind, msg.DedupKey, string(msg.Payload)); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", msg.Kind, err)
	}
	return nil
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg *models.OutboxMessage) error {
	if _, err := r.db.ExecContext(ctx, enqueueQuery, msg.Kind, msg.DedupKey, string(msg.Payload)); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", msg.Kind, err)
	}
	return nil
}

func (r *outboxRepository) ClaimBatchTx(ctx context.Context, tx *sql.Tx, limit int) ([]*models.OutboxMessage, error) {
	query := `SELECT id, kind, dedup_key, payload, attempts, status, last_error, available_at, created_at
	          FROM outbox_messages
	          WHERE status = 'pending' AND available_at <= NOW()
	          ORDER BY id
	          LIMIT $1
	          FOR UPDATE SKIP LOCKED`
	rows, err := tx.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox batch: %w", err)
	}
	defer rows.Close()

	var batch []*models.OutboxMessage
	for rows.Next() {
		m := &models.OutboxMessage{}
		err := rows.Scan(&m.ID, &m.Kind, &m.DedupKey, &m.Payload, &m.Attempts, &m.Status, &m.LastError,
			&m.AvailableAt, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		batch = append(batch, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *outboxRepository) MarkDoneTx(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE outbox_messages SET status = 'done', attempts = attempts + 1, last_error = '' WHERE id = $1", id)
	return err
}

func (r *outboxRepository) MarkRetryTx(ctx context.Context, tx *sql.Tx, id int64, lastErr string, availableAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE outbox_messages SET attempts = attempts + 1, last_error = $1, available_at = $2 WHERE id = $3",
		lastErr, availableAt, id)
	return err
}

func (r *outboxRepository) MarkFailedTx(ctx context.Context, tx *sql.Tx, id int64, lastErr string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE outbox_messages SET status = 'failed', attempts = attempts + 1, last_error = $1 WHERE id = $2",
		lastErr, id)
	return err
}
