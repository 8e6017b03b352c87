package http

import (
	"net/http"

	"github.com/klwxsrx/go-throttle/internal/relay/api"
	pkghttp "github.com/klwxsrx/go-throttle/pkg/http"
)

type queuesHandler struct {
	relay api.API
}

func NewQueuesHandler(relay api.API) pkghttp.Handler {
	return queuesHandler{relay: relay}
}

func (h queuesHandler) Method() string {
	return http.MethodGet
}

func (h queuesHandler) Path() string {
	return "/queues"
}

func (h queuesHandler) HTTPHandler() pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, _ *http.Request) error {
		w.SetJSONBody(queuesOut{Queues: h.relay.Queues()})
		return nil
	}
}

type queuesOut struct {
	Queues []api.QueueInfo `json:"queues"`
}
