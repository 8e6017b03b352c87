package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	pkgcmd "github.com/klwxsrx/go-throttle/pkg/cmd"
	"github.com/klwxsrx/go-throttle/pkg/env"
	pkghttp "github.com/klwxsrx/go-throttle/pkg/http"
	"github.com/klwxsrx/go-throttle/pkg/throttle"
)

const (
	StoreKindMemory = "memory"
	StoreKindRedis  = "redis"
	StoreKindSQL    = "sql"

	defaultUpstreamTimeout = 30 * time.Second
)

var ErrInvalidConfig = errors.New("invalid config")

type (
	Config struct {
		Log    pkgcmd.LogConfig  `yaml:"log"`
		Store  StoreConfig       `yaml:"store"`
		Relay  RelayConfig       `yaml:"relay"`
		Queues []throttle.Config `yaml:"queues"`
	}

	StoreConfig struct {
		Kind      string             `yaml:"kind"`
		KeyPrefix string             `yaml:"keyPrefix"`
		Redis     pkgcmd.RedisConfig `yaml:"redis"`
		SQL       pkgcmd.SQLConfig   `yaml:"sql"`
	}

	RelayConfig struct {
		Address              string        `yaml:"address"`
		UpstreamURL          string        `yaml:"upstreamURL"`
		UpstreamTimeout      time.Duration `yaml:"upstreamTimeout"`
		DefaultRatePerMinute float64       `yaml:"defaultRatePerMinute"`
		MaxConcurrentTasks   int           `yaml:"maxConcurrentTasks"`
	}
)

func DefaultConfig() Config {
	return Config{
		Log: pkgcmd.LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Kind: StoreKindMemory,
			Redis: pkgcmd.RedisConfig{
				Address: "localhost:6379",
			},
			SQL: pkgcmd.SQLConfig{
				Dialect: "postgres",
			},
		},
		Relay: RelayConfig{
			Address:         pkghttp.DefaultServerAddress,
			UpstreamTimeout: defaultUpstreamTimeout,
		},
	}
}

// LoadConfig reads the yaml file, if any, over the defaults, then applies environment overrides.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}

		err = yaml.Unmarshal(data, &config)
		if err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	err := config.ApplyEnv()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) ApplyEnv() error {
	overrides := []func() error{
		c.Log.ApplyEnv,
		c.Store.Redis.ApplyEnv,
		c.Store.SQL.ApplyEnv,
		func() error { return env.Override(&c.Store.Kind, "STORE_KIND") },
		func() error { return env.Override(&c.Store.KeyPrefix, "STORE_KEY_PREFIX") },
		func() error { return env.Override(&c.Relay.Address, "RELAY_ADDRESS") },
		func() error { return env.Override(&c.Relay.UpstreamURL, "RELAY_UPSTREAM_URL") },
		func() error { return env.Override(&c.Relay.UpstreamTimeout, "RELAY_UPSTREAM_TIMEOUT") },
		func() error { return env.Override(&c.Relay.DefaultRatePerMinute, "RELAY_DEFAULT_RATE") },
		func() error { return env.Override(&c.Relay.MaxConcurrentTasks, "RELAY_MAX_CONCURRENT_TASKS") },
	}
	for i := range c.Queues {
		queue := &c.Queues[i]
		overrides = append(overrides, func() error {
			return env.Override(&queue.RatePerMinute, queueRateKey(queue.QueueID))
		})
	}

	for _, override := range overrides {
		if err := override(); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreKindMemory, StoreKindRedis, StoreKindSQL:
	default:
		return fmt.Errorf("%w: unknown store kind %q", ErrInvalidConfig, c.Store.Kind)
	}

	seen := make(map[string]struct{}, len(c.Queues))
	for _, queue := range c.Queues {
		if _, ok := seen[queue.QueueID]; ok {
			return fmt.Errorf("%w: duplicate queue %q", ErrInvalidConfig, queue.QueueID)
		}
		seen[queue.QueueID] = struct{}{}

		if _, err := throttle.ValidateConfig(queue); err != nil {
			return fmt.Errorf("%w: queue %q: %w", ErrInvalidConfig, queue.QueueID, err)
		}
	}

	if c.Relay.DefaultRatePerMinute < 0 {
		return fmt.Errorf("%w: negative default rate", ErrInvalidConfig)
	}
	return nil
}

// QueueRate looks up the configured queue, then the queue environment key, then the default rate.
func (c Config) QueueRate(queueID string) (float64, bool) {
	for _, queue := range c.Queues {
		if queue.QueueID == queueID {
			return queue.RatePerMinute, true
		}
	}

	rate, err := env.ParseOptional[float64](queueRateKey(queueID))
	if err == nil && rate != nil {
		return *rate, true
	}

	if c.Relay.DefaultRatePerMinute > 0 {
		return c.Relay.DefaultRatePerMinute, true
	}
	return 0, false
}

func (c Config) QueueIDs() []string {
	ids := make([]string, 0, len(c.Queues))
	for _, queue := range c.Queues {
		ids = append(ids, queue.QueueID)
	}
	return ids
}

func queueRateKey(queueID string) string {
	return env.Key("throttle", "queue", queueID, "rate")
}
