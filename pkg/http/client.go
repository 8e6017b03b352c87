package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/klwxsrx/go-throttle/pkg/log"
	"github.com/klwxsrx/go-throttle/pkg/metric"
	"github.com/klwxsrx/go-throttle/pkg/observability"
)

type (
	ClientOption func(*ClientImpl)

	Client interface {
		NewRequest(ctx context.Context) *resty.Request
		With(opts ...ClientOption) Client
	}

	ClientImpl struct {
		DestinationName string
		RESTClient      *resty.Client
		opts            []ClientOption
	}
)

func NewClient(opts ...ClientOption) Client {
	client := ClientImpl{
		DestinationName: "",
		RESTClient:      resty.New(),
		opts:            opts,
	}

	for _, opt := range opts {
		opt(&client)
	}

	return client
}

func (c ClientImpl) NewRequest(ctx context.Context) *resty.Request {
	return c.RESTClient.NewRequest().SetContext(ctx)
}

func (c ClientImpl) With(opts ...ClientOption) Client {
	mergedOpts := make([]ClientOption, 0, len(c.opts)+len(opts))
	mergedOpts = append(mergedOpts, c.opts...)
	mergedOpts = append(mergedOpts, opts...)
	return NewClient(mergedOpts...)
}

func WithClientDestination(name, url string) ClientOption {
	return func(c *ClientImpl) {
		c.DestinationName = name
		c.RESTClient.SetBaseURL(url)
	}
}

func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.SetTimeout(timeout)
	}
}

func WithRequestObservability(observer observability.Observer, requestIDHeaderName string) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			id, ok := observer.RequestID(req.Context())
			if !ok {
				return nil
			}

			req.SetHeader(requestIDHeaderName, id)
			return nil
		})
	}
}

func WithRequestLogging(logger log.Logger, infoLevel, errorLevel log.Level) ClientOption {
	const destinationNameLogField = "destinationName"
	return func(c *ClientImpl) {
		c.RESTClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			logger := getRequestResponseFieldsLogger(resp.Request.RawRequest, resp.StatusCode(), logger).
				WithField(destinationNameLogField, getDestinationNameForLogging(c))

			if resp.StatusCode() >= http.StatusInternalServerError {
				logger.Log(resp.Request.Context(), errorLevel, "http call completed with internal error")
			} else {
				logger.Log(resp.Request.Context(), infoLevel, "http call completed")
			}

			return nil
		})

		c.RESTClient.OnError(func(req *resty.Request, err error) {
			logger := logger
			if req.RawRequest != nil {
				logger = getRequestFieldsLogger(req.RawRequest, logger)
			}

			logger.
				WithField(destinationNameLogField, getDestinationNameForLogging(c)).
				WithError(err).
				Log(req.Context(), errorLevel, "http call completed with error")
		})
	}
}

func WithRequestMetrics(metrics metric.Metrics) ClientOption {
	return func(c *ClientImpl) {
		destinationName := c.DestinationName
		if destinationName == "" {
			destinationName = "none"
		}

		c.RESTClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			metrics.With(metric.Labels{
				"destination": destinationName,
				"method":      resp.Request.Method,
				"code":        fmt.Sprintf("%d", resp.StatusCode()),
			}).Duration("http_client_request_duration_seconds", resp.Time())
			return nil
		})
	}
}

func getDestinationNameForLogging(c *ClientImpl) string {
	if c.DestinationName != "" {
		return c.DestinationName
	}
	return "-"
}
