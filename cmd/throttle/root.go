package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	commoncmd "github.com/klwxsrx/go-throttle/internal/pkg/cmd"
)

const shutdownTimeout = 30 * time.Second

type configLoader func(cmd *cobra.Command) (commoncmd.Config, error)

type rootFlags struct {
	configPath   string
	logLevel     string
	logFormat    string
	storeKind    string
	keyPrefix    string
	redisAddress string
	sqlDialect   string
	sqlDSN       string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "throttle",
		Short:         "Rate-limited task admission over a shared queue store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "yaml config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format (json, text)")
	pf.StringVar(&flags.storeKind, "store", "", "queue store (memory, redis, sql)")
	pf.StringVar(&flags.keyPrefix, "key-prefix", "", "redis key prefix")
	pf.StringVar(&flags.redisAddress, "redis-address", "", "redis address")
	pf.StringVar(&flags.sqlDialect, "sql-dialect", "", "sql dialect (postgres, sqlite)")
	pf.StringVar(&flags.sqlDSN, "sql-dsn", "", "sql data source name")

	load := flags.loader()
	root.AddCommand(
		newRelayCmd(load),
		newRunCmd(load),
		newMigrateCmd(load),
	)

	return root
}

// loader reads the config file and the environment, then applies the flags set on the command line.
func (f *rootFlags) loader() configLoader {
	return func(cmd *cobra.Command) (commoncmd.Config, error) {
		config, err := commoncmd.LoadConfig(f.configPath)
		if err != nil {
			return commoncmd.Config{}, err
		}

		changed := cmd.Flags().Changed
		overrides := []struct {
			flag   string
			target *string
			value  string
		}{
			{flag: "log-level", target: &config.Log.Level, value: f.logLevel},
			{flag: "log-format", target: &config.Log.Format, value: f.logFormat},
			{flag: "store", target: &config.Store.Kind, value: f.storeKind},
			{flag: "key-prefix", target: &config.Store.KeyPrefix, value: f.keyPrefix},
			{flag: "redis-address", target: &config.Store.Redis.Address, value: f.redisAddress},
			{flag: "sql-dialect", target: &config.Store.SQL.Dialect, value: f.sqlDialect},
			{flag: "sql-dsn", target: &config.Store.SQL.DSN, value: f.sqlDSN},
		}
		for _, override := range overrides {
			if changed(override.flag) {
				*override.target = override.value
			}
		}

		return config, nil
	}
}

func closeInfrastructure(ctx context.Context, infra *commoncmd.InfrastructureContainer) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	infra.Close(ctx)
}
