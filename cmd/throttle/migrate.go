package main

import (
	"github.com/spf13/cobra"

	commoncmd "github.com/klwxsrx/go-throttle/internal/pkg/cmd"
	pkgcmd "github.com/klwxsrx/go-throttle/pkg/cmd"
)

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the sql store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			config, err := load(cmd)
			if err != nil {
				return err
			}
			config.Store.Kind = commoncmd.StoreKindSQL

			infra := commoncmd.NewInfrastructureContainer(ctx, config)
			logger := infra.Logger.MustLoad()
			defer pkgcmd.HandleAppPanic(ctx, logger)
			defer closeInfrastructure(ctx, infra)

			db := infra.DB.MustLoad()
			logger.WithField("dialect", string(db.Dialect())).Info(ctx, "migrations applied")
			return nil
		},
	}
}
