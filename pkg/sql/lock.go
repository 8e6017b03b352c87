package sql

import (
	"context"
	"fmt"
	"hash/fnv"
)

// withTransactionLevelLock serializes transactions using the same name until they end.
// sqlite transactions are already serialized by the single connection.
func withTransactionLevelLock(ctx context.Context, dialect Dialect, name string, tx ClientTx) error {
	if dialect != DialectPostgres {
		return nil
	}

	lockID, err := getLockIDByName(name)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockID)
	if err != nil {
		return fmt.Errorf("get lock for %s: %w", name, err)
	}

	return nil
}

func getLockIDByName(name string) (int64, error) {
	hash := fnv.New64a()
	_, err := hash.Write([]byte(name))
	if err != nil {
		return 0, fmt.Errorf("create hash for lock with name %s: %w", name, err)
	}

	return int64(hash.Sum64()), nil
}
