package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/klwxsrx/go-throttle/pkg/env"
	"github.com/klwxsrx/go-throttle/pkg/log"
	"github.com/klwxsrx/go-throttle/pkg/redis"
	"github.com/klwxsrx/go-throttle/pkg/sql"
)

type (
	LogConfig struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	RedisConfig struct {
		Address           string        `yaml:"address"`
		Password          string        `yaml:"password"`
		DB                int           `yaml:"db"`
		ConnectionTimeout time.Duration `yaml:"connectionTimeout"`
	}

	SQLConfig struct {
		Dialect           string        `yaml:"dialect"`
		DSN               string        `yaml:"dsn"`
		ConnectionTimeout time.Duration `yaml:"connectionTimeout"`
	}
)

func (c *LogConfig) ApplyEnv() error {
	return overrideAll(
		func() error { return env.Override(&c.Level, "LOG_LEVEL") },
		func() error { return env.Override(&c.Format, "LOG_FORMAT") },
	)
}

func (c *RedisConfig) ApplyEnv() error {
	return overrideAll(
		func() error { return env.Override(&c.Address, "REDIS_ADDRESS") },
		func() error { return env.Override(&c.Password, "REDIS_PASSWORD") },
		func() error { return env.Override(&c.DB, "REDIS_DB") },
		func() error { return env.Override(&c.ConnectionTimeout, "REDIS_CONNECTION_TIMEOUT") },
	)
}

func (c *SQLConfig) ApplyEnv() error {
	return overrideAll(
		func() error { return env.Override(&c.Dialect, "SQL_DIALECT") },
		func() error { return env.Override(&c.DSN, "SQL_DSN") },
		func() error { return env.Override(&c.ConnectionTimeout, "SQL_CONNECTION_TIMEOUT") },
	)
}

// InitLogger writes to stderr, stdout belongs to the commands run by the process.
func InitLogger(config LogConfig) log.Logger {
	format := log.FormatJSON
	if log.Format(config.Format) == log.FormatText {
		format = log.FormatText
	}

	return log.New(log.ParseLevel(config.Level), log.WithFormat(format), log.WithWriter(os.Stderr))
}

func MustInitRedis(ctx context.Context, config RedisConfig, logger log.Logger) *goredis.Client {
	client, err := redis.NewClient(ctx, redis.Config{
		Address:           config.Address,
		Password:          config.Password,
		DB:                config.DB,
		ConnectionTimeout: config.ConnectionTimeout,
	}, logger)
	if err != nil {
		panic(fmt.Errorf("open redis connection: %w", err))
	}

	return client
}

func MustInitSQL(ctx context.Context, config SQLConfig, logger log.Logger, migrations ...sql.MigrationSource) sql.Database {
	dialect := sql.DialectPostgres
	if config.Dialect != "" {
		dialect = env.Must(sql.ParseDialect(config.Dialect))
	}

	db, err := sql.NewDatabase(ctx, sql.Config{
		Dialect:           dialect,
		DSN:               config.DSN,
		ConnectionTimeout: config.ConnectionTimeout,
	}, logger)
	if err != nil {
		panic(fmt.Errorf("open sql connection: %w", err))
	}

	for _, migration := range migrations {
		err = sql.NewMigration(db, migration, logger).Execute(ctx)
		if err != nil {
			db.Close(ctx)
			panic(fmt.Errorf("execute migrations: %w", err))
		}
	}

	return db
}

func overrideAll(overrides ...func() error) error {
	for _, override := range overrides {
		if err := override(); err != nil {
			return err
		}
	}
	return nil
}
