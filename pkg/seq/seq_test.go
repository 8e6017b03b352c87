package seq_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/klwxsrx/go-throttle/pkg/seq"
)

type record struct {
	id    string
	delay time.Duration
	tag   int
}

func (r record) GetID() string {
	return r.id
}

func TestSum(t *testing.T) {
	assert.Equal(t, 0, seq.Sum[int](nil))
	assert.Equal(t, 6, seq.Sum([]int{1, 2, 3}))
	assert.InDelta(t, 1.5, seq.Sum([]float64{0.5, 1}), 1e-9)
	assert.Equal(t, 3*time.Second, seq.Sum([]time.Duration{time.Second, 2 * time.Second}))
}

func TestPluck(t *testing.T) {
	records := []record{{id: "a", delay: time.Second}, {id: "b", delay: 2 * time.Second}}

	ids := seq.Pluck(records, func(r record) string { return r.id })
	delays := seq.Pluck(records, func(r record) time.Duration { return r.delay })

	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	assert.Empty(t, seq.Pluck([]record{}, func(r record) string { return r.id }))
}

func TestFindByID(t *testing.T) {
	records := []record{{id: "a", tag: 1}, {id: "b", tag: 2}, {id: "a", tag: 3}}

	found, ok := seq.FindByID("a", records)
	assert.True(t, ok)
	assert.Equal(t, 3, found.tag)

	found, ok = seq.FindByID("b", records)
	assert.True(t, ok)
	assert.Equal(t, 2, found.tag)

	_, ok = seq.FindByID("c", records)
	assert.False(t, ok)

	_, ok = seq.FindByID[record]("a", nil)
	assert.False(t, ok)
}
