package sql

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/klwxsrx/go-throttle/pkg/log"
)

const (
	migrationLock  = "perform_migration_lock"
	querySeparator = ";\n"

	migrationTableDDL = `
		CREATE TABLE IF NOT EXISTS migration (
			id text PRIMARY KEY
		)
	`
)

// MigrationSource returns the migration files written for the dialect.
type MigrationSource func(dialect Dialect) (fs.FS, error)

// FSMigrations expects one directory of *.sql files per dialect.
func FSMigrations(files fs.FS) MigrationSource {
	return func(dialect Dialect) (fs.FS, error) {
		return fs.Sub(files, string(dialect))
	}
}

type Migration struct {
	db         Database
	migrations MigrationSource
	logger     log.Logger
}

func NewMigration(db Database, migrations MigrationSource, logger log.Logger) *Migration {
	return &Migration{
		db:         db,
		migrations: migrations,
		logger:     logger,
	}
}

func (m *Migration) Execute(ctx context.Context) error {
	files, err := m.migrations(m.db.Dialect())
	if err != nil {
		return fmt.Errorf("failed to get %s migrations: %w", m.db.Dialect(), err)
	}

	_, err = m.db.ExecContext(ctx, migrationTableDDL)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	migrationIDs, err := m.getFileNames(files)
	if err != nil {
		return fmt.Errorf("failed to get migration file names: %w", err)
	}

	for _, migrationID := range migrationIDs {
		migrationSQL, err := fs.ReadFile(files, migrationID)
		if err != nil {
			return fmt.Errorf("failed to read migration sql: %w", err)
		}

		err = m.performMigration(ctx, migrationID, string(migrationSQL))
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) getFileNames(files fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		result = append(result, entry.Name())
	}
	sort.Strings(result)
	return result, nil
}

func (m *Migration) performMigration(ctx context.Context, migrationID, migrationSQL string) error {
	performed := false
	err := WithinTransaction(ctx, m.db, func(ctx context.Context, tx ClientTx) error {
		err := withTransactionLevelLock(ctx, m.db.Dialect(), migrationLock, tx)
		if err != nil {
			return err
		}

		performed, err = m.isPerformed(ctx, tx, migrationID)
		if err != nil || performed {
			return err
		}

		return m.processMigration(ctx, tx, migrationID, migrationSQL)
	})
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", migrationID, err)
	}

	if !performed {
		m.logger.WithField("migrationID", migrationID).Info(ctx, "migration executed successfully")
	}
	return nil
}

func (m *Migration) processMigration(ctx context.Context, client Client, migrationID, migrationSQL string) error {
	if strings.TrimSpace(migrationSQL) == "" {
		return errors.New("empty migration")
	}

	query, args, err := m.db.Builder().
		Insert("migration").
		Columns("id").
		Values(migrationID).
		ToSql()
	if err != nil {
		return err
	}

	_, err = client.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	for _, query := range m.splitToQueries(migrationSQL) {
		_, err = client.ExecContext(ctx, query)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) isPerformed(ctx context.Context, client Client, migrationID string) (bool, error) {
	query, args, err := m.db.Builder().
		Select("count(*)").
		From("migration").
		Where("id = ?", migrationID).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int
	err = client.GetContext(ctx, &count, query, args...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *Migration) splitToQueries(sql string) []string {
	parts := strings.Split(sql, querySeparator)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			result = append(result, part)
		}
	}
	return result
}
