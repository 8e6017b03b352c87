package sql

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/klwxsrx/go-throttle/pkg/log"
)

const defaultConnectionTimeout = 20 * time.Second

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type (
	Dialect string

	Config struct {
		Dialect           Dialect
		DSN               string
		ConnectionTimeout time.Duration
	}

	PostgresDSN struct {
		User     string
		Password string
		Address  string
		Database string
	}

	Database interface {
		TxClient
		Dialect() Dialect
		Builder() sq.StatementBuilderType
		Close(ctx context.Context)
	}
)

func (d PostgresDSN) String() string {
	return fmt.Sprintf("postgresql://%s:%s@%s/%s?sslmode=disable", d.User, d.Password, d.Address, d.Database)
}

func ParseDialect(name string) (Dialect, error) {
	switch Dialect(name) {
	case DialectPostgres, DialectSQLite:
		return Dialect(name), nil
	default:
		return "", fmt.Errorf("unknown sql dialect %q", name)
	}
}

type database struct {
	*sqlx.DB
	dialect Dialect
	builder sq.StatementBuilderType
	logger  log.Logger
}

func (d *database) Begin(ctx context.Context) (ClientTx, error) {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (d *database) Dialect() Dialect {
	return d.dialect
}

func (d *database) Builder() sq.StatementBuilderType {
	return d.builder
}

func (d *database) Close(ctx context.Context) {
	err := d.DB.Close()
	if err != nil {
		d.logger.WithError(err).Error(ctx, "failed to close sql database")
	}
}

func NewDatabase(ctx context.Context, config Config, logger log.Logger) (Database, error) {
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = defaultConnectionTimeout
	}
	if config.Dialect == "" {
		config.Dialect = DialectPostgres
	}

	db, err := openConnection(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	if config.Dialect == DialectSQLite {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	}

	return &database{
		DB:      db,
		dialect: config.Dialect,
		builder: builder,
		logger:  logger,
	}, nil
}

func openConnection(ctx context.Context, config Config, logger log.Logger) (*sqlx.DB, error) {
	driver, err := driverName(config.Dialect)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, config.DSN)
	if err != nil {
		return nil, err
	}
	if config.Dialect == DialectSQLite {
		// sqlite allows a single writer, queue operations must not interleave
		db.SetMaxOpenConns(1)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Second
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = config.ConnectionTimeout / 4
	eb.MaxElapsedTime = config.ConnectionTimeout

	err = backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(eb, ctx), func(err error, next time.Duration) {
		logger.WithError(err).WithField("retryIn", next).Warn(ctx, "sql database is not available")
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func driverName(dialect Dialect) (string, error) {
	switch dialect {
	case DialectPostgres:
		return "postgres", nil
	case DialectSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unknown sql dialect %q", dialect)
	}
}
