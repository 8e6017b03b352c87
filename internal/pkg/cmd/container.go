package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	throttlemigrations "github.com/klwxsrx/go-throttle/data/sql/throttle"
	pkgcmd "github.com/klwxsrx/go-throttle/pkg/cmd"
	pkghttp "github.com/klwxsrx/go-throttle/pkg/http"
	"github.com/klwxsrx/go-throttle/pkg/lazy"
	"github.com/klwxsrx/go-throttle/pkg/log"
	"github.com/klwxsrx/go-throttle/pkg/metric"
	pkgprometheus "github.com/klwxsrx/go-throttle/pkg/metric/prometheus"
	"github.com/klwxsrx/go-throttle/pkg/observability"
	"github.com/klwxsrx/go-throttle/pkg/redis"
	"github.com/klwxsrx/go-throttle/pkg/sql"
	"github.com/klwxsrx/go-throttle/pkg/throttle"
	"github.com/klwxsrx/go-throttle/pkg/throttle/memory"
	"github.com/klwxsrx/go-throttle/pkg/worker"
)

const (
	tracerName  = "github.com/klwxsrx/go-throttle/cmd/throttle"
	MetricsPath = "/metrics"
)

// HTTPClientFactory builds a client with the given options followed by the common observability ones.
type HTTPClientFactory func(opts ...pkghttp.ClientOption) pkghttp.Client

type InfrastructureContainer struct {
	Config            Config
	HTTPServer        lazy.Loader[pkghttp.Server]
	HTTPClientFactory lazy.Loader[HTTPClientFactory]
	Store             lazy.Loader[throttle.Store]
	Executor          lazy.Loader[worker.Pool]
	DB                lazy.Loader[sql.Database]
	Redis             lazy.Loader[*goredis.Client]
	Metrics           lazy.Loader[metric.Metrics]
	Logger            lazy.Loader[log.Logger]

	registry lazy.Loader[*prometheus.Registry]
}

func NewInfrastructureContainer(
	ctx context.Context,
	config Config,
	httpServerOpts ...pkghttp.ServerOption,
) *InfrastructureContainer {
	logger := loggerProvider(config)
	registry := registryProvider()
	metrics := metricsProvider(registry)
	observer := observerProvider(logger)

	db := sqlDatabaseProvider(ctx, config, logger)
	redisClient := redisClientProvider(ctx, config, logger)

	return &InfrastructureContainer{
		Config:            config,
		HTTPServer:        httpServerProvider(config, registry, observer, metrics, logger, httpServerOpts),
		HTTPClientFactory: httpClientFactoryProvider(observer, metrics, logger),
		Store:             storeProvider(config, db, redisClient, metrics, logger),
		Executor:          executorProvider(config, logger),
		DB:                db,
		Redis:             redisClient,
		Metrics:           metrics,
		Logger:            logger,
		registry:          registry,
	}
}

// ThrottleOptions are shared by every queue of the process.
func (i *InfrastructureContainer) ThrottleOptions() []throttle.Option {
	return []throttle.Option{
		throttle.WithLogger(i.Logger.MustLoad()),
		throttle.WithMetrics(i.Metrics.MustLoad()),
		throttle.WithExecutor(i.Executor.MustLoad()),
	}
}

// Close waits for started tasks until ctx is done, then closes the connections.
func (i *InfrastructureContainer) Close(ctx context.Context) {
	i.Executor.IfLoaded(func(pool worker.Pool) {
		done := make(chan struct{})
		go func() {
			pool.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			i.Logger.MustLoad().Warn(ctx, "closed before started tasks completed")
		}
	})
	i.Redis.IfLoaded(func(client *goredis.Client) { _ = client.Close() })
	i.DB.IfLoaded(func(db sql.Database) { db.Close(ctx) })
}

func loggerProvider(config Config) lazy.Loader[log.Logger] {
	return lazy.New(func() (log.Logger, error) {
		return pkgcmd.InitLogger(config.Log), nil
	})
}

func registryProvider() lazy.Loader[*prometheus.Registry] {
	return lazy.New(func() (*prometheus.Registry, error) {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return registry, nil
	})
}

func metricsProvider(registry lazy.Loader[*prometheus.Registry]) lazy.Loader[metric.Metrics] {
	return lazy.New(func() (metric.Metrics, error) {
		return pkgprometheus.New(registry.MustLoad()), nil
	})
}

func observerProvider(logger lazy.Loader[log.Logger]) lazy.Loader[observability.Observer] {
	return lazy.New(func() (observability.Observer, error) {
		return observability.New(
			observability.WithFieldsLogging(logger.MustLoad(), observability.LogFieldRequestID),
		), nil
	})
}

func sqlDatabaseProvider(
	ctx context.Context,
	config Config,
	logger lazy.Loader[log.Logger],
) lazy.Loader[sql.Database] {
	return lazy.New(func() (sql.Database, error) {
		return pkgcmd.MustInitSQL(ctx, config.Store.SQL, logger.MustLoad(), throttlemigrations.Migrations), nil
	})
}

func redisClientProvider(
	ctx context.Context,
	config Config,
	logger lazy.Loader[log.Logger],
) lazy.Loader[*goredis.Client] {
	return lazy.New(func() (*goredis.Client, error) {
		return pkgcmd.MustInitRedis(ctx, config.Store.Redis, logger.MustLoad()), nil
	})
}

func storeProvider(
	config Config,
	db lazy.Loader[sql.Database],
	redisClient lazy.Loader[*goredis.Client],
	metrics lazy.Loader[metric.Metrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[throttle.Store] {
	return lazy.New(func() (throttle.Store, error) {
		var store throttle.Store
		switch config.Store.Kind {
		case StoreKindMemory:
			store = memory.NewStore()
		case StoreKindRedis:
			var opts []redis.Option
			if config.Store.KeyPrefix != "" {
				opts = append(opts, redis.WithKeyPrefix(config.Store.KeyPrefix))
			}
			store = redis.NewStore(redisClient.MustLoad(), opts...)
		case StoreKindSQL:
			store = sql.NewThrottleStore(db.MustLoad())
		default:
			return nil, fmt.Errorf("%w: unknown store kind %q", ErrInvalidConfig, config.Store.Kind)
		}

		return observability.WrapStore(
			store,
			observability.WithTracer(otel.Tracer(tracerName)),
			observability.WithStoreMetrics(metrics.MustLoad()),
			observability.WithStoreLogger(logger.MustLoad()),
		), nil
	})
}

func executorProvider(config Config, logger lazy.Loader[log.Logger]) lazy.Loader[worker.Pool] {
	return lazy.New(func() (worker.Pool, error) {
		return worker.NewPool(config.Relay.MaxConcurrentTasks, func(msg any, stack []byte) {
			logger.MustLoad().WithField("panic", log.Fields{
				"message": fmt.Sprintf("%v", msg),
				"stack":   string(stack),
			}).Error(context.Background(), "task runner failed with panic")
		}), nil
	})
}

func httpServerProvider(
	config Config,
	registry lazy.Loader[*prometheus.Registry],
	observer lazy.Loader[observability.Observer],
	metrics lazy.Loader[metric.Metrics],
	logger lazy.Loader[log.Logger],
	opts []pkghttp.ServerOption,
) lazy.Loader[pkghttp.Server] {
	return lazy.New(func() (pkghttp.Server, error) {
		opts = append([]pkghttp.ServerOption{
			pkghttp.WithHealthCheck(nil),
			pkghttp.WithRawHandler(
				http.MethodGet,
				MetricsPath,
				promhttp.HandlerFor(registry.MustLoad(), promhttp.HandlerOpts{}),
			),
			pkghttp.WithCORSHandler(),
			pkghttp.WithRequestID(observer.MustLoad()),
			pkghttp.WithMetrics(metrics.MustLoad()),
			pkghttp.WithLogging(logger.MustLoad(), MetricsPath),
		}, opts...)
		return pkghttp.NewServer(config.Relay.Address, opts...), nil
	})
}

func httpClientFactoryProvider(
	observer lazy.Loader[observability.Observer],
	metrics lazy.Loader[metric.Metrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[HTTPClientFactory] {
	return lazy.New(func() (HTTPClientFactory, error) {
		return func(opts ...pkghttp.ClientOption) pkghttp.Client {
			opts = append(opts,
				pkghttp.WithRequestObservability(observer.MustLoad(), pkghttp.RequestIDHeader),
				pkghttp.WithRequestMetrics(metrics.MustLoad()),
				pkghttp.WithRequestLogging(logger.MustLoad(), log.LevelInfo, log.LevelWarn),
			)
			return pkghttp.NewClient(opts...)
		}, nil
	})
}
