package event_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-throttle/pkg/event"
)

func TestChannel_Subscribe_Returns(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		handler   event.Handler
		expect    error
	}{
		{
			name:      "success",
			eventName: event.Error,
			handler:   func(any) {},
		},
		{
			name:      "error_when_name_is_empty",
			eventName: "",
			handler:   func(any) {},
			expect:    event.ErrEmptyEventName,
		},
		{
			name:      "error_when_handler_is_nil",
			eventName: event.Error,
			handler:   nil,
			expect:    event.ErrNilHandler,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := event.NewChannel().Subscribe(tc.eventName, tc.handler)
			if tc.expect == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expect)
		})
	}
}

func TestChannel_Publish_CallsHandlersInReverseOrder(t *testing.T) {
	ch := event.NewChannel()

	var calls []string
	require.NoError(t, ch.Subscribe("tick", func(p any) { calls = append(calls, "first:"+p.(string)) }))
	require.NoError(t, ch.Subscribe("tick", func(p any) { calls = append(calls, "second:"+p.(string)) }))
	require.NoError(t, ch.Subscribe("other", func(any) { calls = append(calls, "other") }))

	ch.Publish("tick", "x")

	assert.Equal(t, []string{"second:x", "first:x"}, calls)
}

func TestChannel_Publish_WithoutHandlers_DoesNothing(t *testing.T) {
	assert.NotPanics(t, func() {
		event.NewChannel().Publish("nobody", 1)
	})
}

func TestChannel_Close_DiscardsHandlers(t *testing.T) {
	ch := event.NewChannel()

	var count int
	require.NoError(t, ch.Subscribe(event.Error, func(any) { count++ }))

	ch.Publish(event.Error, errors.New("first"))
	ch.Close()
	ch.Publish(event.Error, errors.New("second"))

	require.NoError(t, ch.Subscribe(event.Error, func(any) { count++ }))
	ch.Publish(event.Error, errors.New("third"))

	assert.Equal(t, 1, count)
}

func TestErrorHandler_IgnoresNonErrorPayload(t *testing.T) {
	var got []error
	handler := event.ErrorHandler(func(err error) { got = append(got, err) })

	expected := errors.New("unexpected")
	handler("not an error")
	handler(expected)

	require.Len(t, got, 1)
	assert.Same(t, expected, got[0])
}
