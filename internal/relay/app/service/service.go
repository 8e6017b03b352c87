package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/klwxsrx/go-throttle/internal/relay/api"
	"github.com/klwxsrx/go-throttle/internal/relay/app/external"
	"github.com/klwxsrx/go-throttle/pkg/throttle"
)

// RateProvider returns the rate of a queue, false if the queue is unknown.
type RateProvider func(queueID string) (ratePerMinute float64, ok bool)

type RelayService struct {
	store      throttle.Store
	upstream   external.Upstream
	rates      RateProvider
	configured []string
	opts       []throttle.Option

	mutex  sync.Mutex
	queues map[string]*throttle.Queue
}

func NewRelayService(
	store throttle.Store,
	upstream external.Upstream,
	rates RateProvider,
	configuredQueueIDs []string,
	opts ...throttle.Option,
) *RelayService {
	return &RelayService{
		store:      store,
		upstream:   upstream,
		rates:      rates,
		configured: configuredQueueIDs,
		opts:       opts,
		queues:     make(map[string]*throttle.Queue),
	}
}

func (s *RelayService) Forward(ctx context.Context, queueID string, req api.Request) (api.Response, error) {
	queue, err := s.queue(queueID)
	if err != nil {
		return api.Response{}, err
	}

	result, err := throttle.Enqueue(ctx, queue, func(ctx context.Context) (api.Response, error) {
		return s.upstream.Do(ctx, req)
	})
	if err != nil {
		return api.Response{}, fmt.Errorf("%w: %w", api.ErrInvalidQueue, err)
	}

	resp, err := result.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return api.Response{}, err
	}
	if err != nil {
		return api.Response{}, fmt.Errorf("%w: %w", api.ErrUpstreamUnavailable, err)
	}

	return resp, nil
}

// Queues lists configured queues and the ones created on demand, sorted by id.
func (s *RelayService) Queues() []api.QueueInfo {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ids := make(map[string]struct{}, len(s.configured)+len(s.queues))
	for _, id := range s.configured {
		ids[id] = struct{}{}
	}
	for id := range s.queues {
		ids[id] = struct{}{}
	}

	result := make([]api.QueueInfo, 0, len(ids))
	for id := range ids {
		rate, ok := s.rates(id)
		if !ok {
			continue
		}

		_, active := s.queues[id]
		result = append(result, api.QueueInfo{
			QueueID:       id,
			RatePerMinute: rate,
			IntervalMs:    throttle.Interval(rate).Milliseconds(),
			Active:        active,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].QueueID < result[j].QueueID
	})
	return result
}

func (s *RelayService) queue(queueID string) (*throttle.Queue, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if queue, ok := s.queues[queueID]; ok {
		return queue, nil
	}

	rate, ok := s.rates(queueID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrQueueNotFound, queueID)
	}

	queue, err := throttle.NewQueue(s.store, throttle.Config{
		QueueID:       queueID,
		RatePerMinute: rate,
	}, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrInvalidQueue, err)
	}

	s.queues[queueID] = queue
	return queue, nil
}
