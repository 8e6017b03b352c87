package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/klwxsrx/go-throttle/internal/relay/api"
	pkghttp "github.com/klwxsrx/go-throttle/pkg/http"
)

const (
	RelayPath = "/relay/{queueID}/{path:.*}"

	MaxBodySize = 10 << 20
)

var relayMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

type relayHandler struct {
	relay  api.API
	method string
}

// NewRelayHandlers returns a handler per forwarded method.
func NewRelayHandlers(relay api.API) []pkghttp.Handler {
	handlers := make([]pkghttp.Handler, 0, len(relayMethods))
	for _, method := range relayMethods {
		handlers = append(handlers, relayHandler{relay: relay, method: method})
	}
	return handlers
}

func (h relayHandler) Method() string {
	return h.method
}

func (h relayHandler) Path() string {
	return RelayPath
}

func (h relayHandler) HTTPHandler() pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) (err error) {
		queueID, err := pkghttp.Parse(pkghttp.PathParameter[string]("queueID"), r, err)
		path, err := pkghttp.Parse(pkghttp.PathParameter[string]("path"), r, err)
		if err != nil {
			return err
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
		if err != nil {
			return fmt.Errorf("%w: read body: %s", pkghttp.ErrParsingError, err.Error())
		}
		if len(body) > MaxBodySize {
			return fmt.Errorf("%w: limit is %d bytes", api.ErrRequestTooLarge, MaxBodySize)
		}

		resp, err := h.relay.Forward(r.Context(), queueID, api.Request{
			Method:   h.method,
			Path:     "/" + path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		if err != nil {
			return err
		}

		w.SetStatusCode(resp.StatusCode).SetBody(resp.Header.Get("Content-Type"), resp.Body)
		return nil
	}
}
