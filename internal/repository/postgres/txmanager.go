package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/obligo/obligo-backend/internal/domain"
)

// TxManager implements domain.TxManager on a pgx connection pool
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new TxManager
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx runs fn inside a database transaction. The transaction commits
// only if fn returns nil; any error (or panic) rolls it back. Serialization
// failures and deadlocks surface as domain.ErrWriteConflict.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		if isWriteConflict(err) {
			return domain.ErrWriteConflict
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isWriteConflict(err) {
			return domain.ErrWriteConflict
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// asTx unwraps the opaque transaction handle passed through the domain
// interfaces.
func asTx(tx domain.Tx) (pgx.Tx, error) {
	pgxTx, ok := tx.(pgx.Tx)
	if !ok {
		return nil, fmt.Errorf("not a postgres transaction: %T", tx)
	}
	return pgxTx, nil
}
