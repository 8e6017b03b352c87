package redis

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/klwxsrx/go-throttle/pkg/log"
)

const defaultConnectionTimeout = 20 * time.Second

type Config struct {
	Address           string
	Password          string
	DB                int
	ConnectionTimeout time.Duration
}

// NewClient connects to redis and retries the first ping until ConnectionTimeout expires.
func NewClient(ctx context.Context, config Config, logger log.Logger) (*goredis.Client, error) {
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = defaultConnectionTimeout
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Second
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = config.ConnectionTimeout / 4
	eb.MaxElapsedTime = config.ConnectionTimeout

	err := backoff.RetryNotify(func() error {
		return client.Ping(ctx).Err()
	}, backoff.WithContext(eb, ctx), func(err error, next time.Duration) {
		logger.WithError(err).WithField("retryIn", next).Warn(ctx, "redis is not available")
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
