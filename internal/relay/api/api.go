//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "API=API"
package api

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrQueueNotFound       = errors.New("queue not found")
	ErrInvalidQueue        = errors.New("invalid queue")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrRequestTooLarge     = errors.New("request body too large")
)

type (
	Request struct {
		Method   string
		Path     string
		RawQuery string
		Header   http.Header
		Body     []byte
	}

	Response struct {
		StatusCode int
		Header     http.Header
		Body       []byte
	}

	QueueInfo struct {
		QueueID       string  `json:"queueID"`
		RatePerMinute float64 `json:"ratePerMinute"`
		IntervalMs    int64   `json:"intervalMs"`
		Active        bool    `json:"active"`
	}
)

type API interface {
	Forward(ctx context.Context, queueID string, req Request) (Response, error)
	Queues() []QueueInfo
}
