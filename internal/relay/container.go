package relay

import (
	commoncmd "github.com/klwxsrx/go-throttle/internal/pkg/cmd"
	"github.com/klwxsrx/go-throttle/internal/relay/app/external"
	"github.com/klwxsrx/go-throttle/internal/relay/app/service"
	"github.com/klwxsrx/go-throttle/internal/relay/infra/http"
	"github.com/klwxsrx/go-throttle/internal/relay/infra/upstream"
	pkghttp "github.com/klwxsrx/go-throttle/pkg/http"
	pkglazy "github.com/klwxsrx/go-throttle/pkg/lazy"
)

type DependencyContainer struct {
	RelayService  pkglazy.Loader[*service.RelayService]
	RelayHandlers pkglazy.Loader[[]pkghttp.Handler]
	QueuesHandler pkglazy.Loader[pkghttp.Handler]
}

func NewDependencyContainer(infra *commoncmd.InfrastructureContainer) *DependencyContainer {
	upstreamClient := upstreamProvider(infra.Config, infra.HTTPClientFactory)
	relayService := relayServiceProvider(infra, upstreamClient)

	return &DependencyContainer{
		RelayService: relayService,
		RelayHandlers: pkglazy.New(func() ([]pkghttp.Handler, error) {
			return http.NewRelayHandlers(relayService.MustLoad()), nil
		}),
		QueuesHandler: pkglazy.New(func() (pkghttp.Handler, error) {
			return http.NewQueuesHandler(relayService.MustLoad()), nil
		}),
	}
}

// HTTPServerOptions must be passed to the server the handlers are registered in.
func HTTPServerOptions() []pkghttp.ServerOption {
	return []pkghttp.ServerOption{http.WithErrorMapping()}
}

func (c *DependencyContainer) MustRegisterHTTPHandlers(registry pkghttp.HandlerRegistry) {
	for _, handler := range c.RelayHandlers.MustLoad() {
		registry.Register(handler)
	}
	registry.Register(c.QueuesHandler.MustLoad())
}

func upstreamProvider(
	config commoncmd.Config,
	httpClients pkglazy.Loader[commoncmd.HTTPClientFactory],
) pkglazy.Loader[external.Upstream] {
	return pkglazy.New(func() (external.Upstream, error) {
		return upstream.New(httpClients.MustLoad()(
			pkghttp.WithClientDestination(upstream.DestinationName, config.Relay.UpstreamURL),
			pkghttp.WithClientTimeout(config.Relay.UpstreamTimeout),
		)), nil
	})
}

func relayServiceProvider(
	infra *commoncmd.InfrastructureContainer,
	upstreamClient pkglazy.Loader[external.Upstream],
) pkglazy.Loader[*service.RelayService] {
	return pkglazy.New(func() (*service.RelayService, error) {
		return service.NewRelayService(
			infra.Store.MustLoad(),
			upstreamClient.MustLoad(),
			infra.Config.QueueRate,
			infra.Config.QueueIDs(),
			infra.ThrottleOptions()...,
		), nil
	})
}
