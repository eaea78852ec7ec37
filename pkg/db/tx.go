package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithinTx runs fn inside a single transaction: commit when fn returns nil,
// rollback on every other exit path, including panics. The rollback after a
// successful commit is a no-op (pgx.ErrTxClosed).
func WithinTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		// after a successful commit this returns pgx.ErrTxClosed; after a
		// failure the pool discards the broken connection either way
		cleanupCtx := context.WithoutCancel(ctx)
		_ = tx.Rollback(cleanupCtx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
