package sql

import (
	"context"
	"fmt"
)

// WithinTransaction commits when fn succeeds and rolls back otherwise.
func WithinTransaction(ctx context.Context, client TxClient, fn func(ctx context.Context, tx ClientTx) error) (err error) {
	tx, err := client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("start db transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = fn(ctx, tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit db transaction: %w", err)
	}
	return nil
}
