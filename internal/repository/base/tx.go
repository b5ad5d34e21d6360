package base

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

type txKey struct{}

// TxFromContext возвращает открытую транзакцию или nil
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// TxManager выполняет функции в serializable-транзакции с повтором
// при конфликте сериализации или дедлоке
type TxManager struct {
	pool       *pgxpool.Pool
	maxRetries uint64
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *zap.Logger
}

// NewTxManager создаёт менеджер транзакций
func NewTxManager(pool *pgxpool.Pool, maxRetries int, logger *zap.Logger) *TxManager {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &TxManager{
		pool:       pool,
		maxRetries: uint64(maxRetries),
		baseDelay:  10 * time.Millisecond,
		maxDelay:   500 * time.Millisecond,
		logger:     logger,
	}
}

// WithinTx выполняет fn в одной транзакции. Вложенный вызов переиспользует
// уже открытую транзакцию. Любая ошибка fn откатывает все изменения.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	// джиттер разводит конкурентов, иначе они повторяют попытки синхронно
	backoff := retry.NewExponential(m.baseDelay)
	backoff = retry.WithJitterPercent(25, backoff)
	backoff = retry.WithCappedDuration(m.maxDelay, backoff)
	backoff = retry.WithMaxRetries(m.maxRetries, backoff)
	attempt := 0

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := m.runOnce(ctx, fn)
		if IsRetryable(err) {
			m.logger.Warn("Transaction serialization failure, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})

	if IsRetryable(err) {
		return fmt.Errorf("%w: transaction retries exhausted after %d attempts: %v", model.ErrInternal, attempt, err)
	}
	return err
}

func (m *TxManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsRetryable: serialization_failure (40001) и deadlock_detected (40P01)
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
