package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/klwxsrx/go-throttle/internal/relay/api"
	"github.com/klwxsrx/go-throttle/internal/relay/app/external"
	pkghttp "github.com/klwxsrx/go-throttle/pkg/http"
)

const DestinationName = "upstream"

var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Content-Length":      {},
	"Host":                {},
}

type upstream struct {
	client pkghttp.Client
}

// New forwards requests with a client configured with the upstream base url.
func New(client pkghttp.Client) external.Upstream {
	return upstream{client: client}
}

func (u upstream) Do(ctx context.Context, req api.Request) (api.Response, error) {
	request := u.client.NewRequest(ctx)
	for key, values := range req.Header {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}
	if req.RawQuery != "" {
		request.SetQueryString(req.RawQuery)
	}
	if len(req.Body) > 0 {
		request.SetBody(req.Body)
	}

	resp, err := request.Execute(req.Method, req.Path)
	if err != nil {
		return api.Response{}, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	header := resp.Header().Clone()
	for key := range header {
		if _, skip := hopByHopHeaders[key]; skip {
			header.Del(key)
		}
	}

	return api.Response{
		StatusCode: resp.StatusCode(),
		Header:     header,
		Body:       resp.Body(),
	}, nil
}
