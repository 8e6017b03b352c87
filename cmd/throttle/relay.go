package main

import (
	"fmt"

	"github.com/spf13/cobra"

	commoncmd "github.com/klwxsrx/go-throttle/internal/pkg/cmd"
	"github.com/klwxsrx/go-throttle/internal/relay"
	pkgcmd "github.com/klwxsrx/go-throttle/pkg/cmd"
	"github.com/klwxsrx/go-throttle/pkg/worker"
)

func newRelayCmd(load configLoader) *cobra.Command {
	var (
		address     string
		upstreamURL string
		defaultRate float64
	)

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve an HTTP relay admitting requests to the upstream at the queue rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			config, err := load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("address") {
				config.Relay.Address = address
			}
			if cmd.Flags().Changed("upstream-url") {
				config.Relay.UpstreamURL = upstreamURL
			}
			if cmd.Flags().Changed("default-rate") {
				config.Relay.DefaultRatePerMinute = defaultRate
			}
			if config.Relay.UpstreamURL == "" {
				return fmt.Errorf("%w: upstream url is required", commoncmd.ErrInvalidConfig)
			}
			if err = config.Validate(); err != nil {
				return err
			}

			infra := commoncmd.NewInfrastructureContainer(ctx, config, relay.HTTPServerOptions()...)
			logger := infra.Logger.MustLoad()
			defer pkgcmd.HandleAppPanic(ctx, logger)
			defer closeInfrastructure(ctx, infra)

			logger.Info(ctx, "relay is starting")

			container := relay.NewDependencyContainer(infra)
			httpServer := infra.HTTPServer.MustLoad()
			container.MustRegisterHTTPHandlers(httpServer)

			logger.
				WithField("address", config.Relay.Address).
				WithField("store", config.Store.Kind).
				Info(ctx, "relay is ready")
			return worker.RunHub(ctx, logger, httpServer.Listener, pkgcmd.TermSignalAwaiter)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address")
	cmd.Flags().StringVar(&upstreamURL, "upstream-url", "", "base url requests are forwarded to")
	cmd.Flags().Float64Var(&defaultRate, "default-rate", 0, "rate per minute of queues missing in the config, 0 rejects them")

	return cmd
}
