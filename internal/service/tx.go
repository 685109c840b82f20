package service

import (
	"database/sql"
	"log/slog"
)

// rollback откатывает транзакцию; ошибка отката только логируется
func rollback(tx *sql.Tx, logger *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}
