package http

import (
	"net/http"

	"github.com/klwxsrx/go-throttle/internal/relay/api"
	pkghttp "github.com/klwxsrx/go-throttle/pkg/http"
)

func WithErrorMapping() pkghttp.ServerOption {
	return pkghttp.WithErrorMapping(map[int][]error{
		http.StatusBadRequest: {api.ErrInvalidQueue},
		http.StatusNotFound:   {api.ErrQueueNotFound},
		http.StatusBadGateway: {api.ErrUpstreamUnavailable},

		http.StatusRequestEntityTooLarge: {api.ErrRequestTooLarge},
	})
}
