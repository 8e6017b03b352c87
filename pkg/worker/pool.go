//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Pool=Pool"
package worker

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

const (
	MaxWorkersCountNumCPU    = -1
	MaxWorkersCountUnlimited = 0
)

type (
	Job func()

	PanicHandler func(msg any, stack []byte)

	Pool interface {
		Do(Job)
		Wait()
	}
)

type pool struct {
	jobCompleted    *sync.WaitGroup
	workerAvailable *sync.Cond
	currentWorkers  int
	maxWorkers      int
	onPanic         PanicHandler
}

// NewPool runs every job in its own goroutine, at most maxWorkers at a time.
// Do blocks while the pool is saturated.
func NewPool(maxWorkers int, onPanic PanicHandler) Pool {
	if maxWorkers <= MaxWorkersCountNumCPU {
		maxWorkers = runtime.NumCPU()
	}
	if onPanic == nil {
		onPanic = func(msg any, stack []byte) {
			panic(fmt.Sprintf("%v\n%s", msg, stack))
		}
	}

	return &pool{
		jobCompleted:    &sync.WaitGroup{},
		workerAvailable: sync.NewCond(&sync.Mutex{}),
		currentWorkers:  0,
		maxWorkers:      maxWorkers,
		onPanic:         onPanic,
	}
}

func (p *pool) Do(job Job) {
	p.jobCompleted.Add(1)

	if p.maxWorkers > 0 {
		p.workerAvailable.L.Lock()
		for p.currentWorkers >= p.maxWorkers {
			p.workerAvailable.Wait()
		}
		p.currentWorkers++
		p.workerAvailable.L.Unlock()
	}

	go func() {
		defer p.release()
		defer func() {
			if msg := recover(); msg != nil {
				p.onPanic(msg, debug.Stack())
			}
		}()

		job()
	}()
}

func (p *pool) Wait() {
	p.jobCompleted.Wait()
}

func (p *pool) release() {
	p.jobCompleted.Done()

	if p.maxWorkers > 0 {
		p.workerAvailable.L.Lock()
		p.currentWorkers--
		p.workerAvailable.L.Unlock()
		p.workerAvailable.Signal()
	}
}
