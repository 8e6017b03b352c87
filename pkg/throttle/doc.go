// Package throttle admits tasks of a queue one at a time and no faster than
// a configured rate, across every process sharing the same Store.
//
// A task is pushed to the store together with an attempt to take the queue
// lock. The holder of the lock executes; everybody else sleeps for the sum of
// the delays currently queued and tries again. The lock is released by
// removing the task one interval after it was acquired, so the next task can
// start no sooner than 60000/ratePerMinute milliseconds later. A crashed
// holder is recovered by the store expiring the lock.
//
//	queue, err := throttle.NewQueue(store, throttle.Config{
//	    QueueID:       "billing-api",
//	    RatePerMinute: 30,
//	})
//	result, err := throttle.Enqueue(ctx, queue, func(ctx context.Context) (int, error) {
//	    return callBillingAPI(ctx)
//	})
//	_ = result.OnError(func(err error) { logCleanupFailure(err) })
//	value, err := result.Wait(ctx)
//
// Failures of the final removal never affect the result; they are reported
// through the "error" event of the result only.
package throttle
