package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type ErrorJob func(context.Context) error

type Group interface {
	Do(ErrorJob)
	Wait() error
}

type group struct {
	ctx  context.Context
	impl *errgroup.Group
}

// NewFailFastGroup cancels the context of every job after the first error.
func NewFailFastGroup(ctx context.Context) Group {
	impl, ctx := errgroup.WithContext(ctx)
	return &group{
		ctx:  ctx,
		impl: impl,
	}
}

func (g *group) Do(job ErrorJob) {
	g.impl.Go(func() error {
		return job(g.ctx)
	})
}

func (g *group) Wait() error {
	return g.impl.Wait()
}
