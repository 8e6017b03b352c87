package throttle

import (
	"encoding/hex"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	pkgtime "github.com/klwxsrx/go-throttle/pkg/time"
)

const defaultSuffixLength = 16

var processCounter = &Counter{}

type (
	// Counter is never reset; share one per process.
	Counter struct {
		value atomic.Uint64
	}

	IDGenerator struct {
		counter      *Counter
		clock        pkgtime.Clock
		suffixLength int
	}

	IDOption func(*IDGenerator)
)

func ProcessCounter() *Counter {
	return processCounter
}

func (c *Counter) Next() uint64 {
	return c.value.Add(1) - 1
}

func WithIDClock(clock pkgtime.Clock) IDOption {
	return func(g *IDGenerator) {
		g.clock = clock
	}
}

func WithSuffixLength(n int) IDOption {
	return func(g *IDGenerator) {
		if n > 0 {
			g.suffixLength = n
		}
	}
}

func NewIDGenerator(counter *Counter, opts ...IDOption) *IDGenerator {
	if counter == nil {
		counter = processCounter
	}

	g := &IDGenerator{
		counter:      counter,
		clock:        pkgtime.NewClock(),
		suffixLength: defaultSuffixLength,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// NewID returns "<counter>-<unix nanos>-<random hex>".
func (g *IDGenerator) NewID() string {
	n := g.counter.Next()

	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(n, 10))
	sb.WriteByte('-')
	sb.WriteString(strconv.FormatInt(g.clock.Now().UnixNano(), 10))
	sb.WriteByte('-')
	sb.WriteString(randomHex(g.suffixLength))
	return sb.String()
}

func (g *IDGenerator) NewTask(queueID string, delay time.Duration) Task {
	return Task{
		QueueID: queueID,
		ID:      g.NewID(),
		Delay:   delay,
	}
}

func randomHex(n int) string {
	var sb strings.Builder
	sb.Grow(n + 24)
	for sb.Len() < n {
		// bytes 6..9 of a v4 uuid carry version and variant bits
		id := uuid.New()
		sb.WriteString(hex.EncodeToString(id[:6]))
		sb.WriteString(hex.EncodeToString(id[10:]))
	}
	return sb.String()[:n]
}
