package lazy_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-throttle/pkg/lazy"
)

func TestLoader_Load_CallsProviderOnce(t *testing.T) {
	calls := 0
	loader := lazy.New(func() (int, error) {
		calls++
		return 42, nil
	})

	loaded := false
	loader.IfLoaded(func(int) { loaded = true })
	assert.False(t, loaded)

	require.Equal(t, 42, loader.MustLoad())
	require.Equal(t, 42, loader.MustLoad())
	assert.Equal(t, 1, calls)

	loader.IfLoaded(func(int) { loaded = true })
	assert.True(t, loaded)
}

func TestLoader_MustLoad_PanicsOnError(t *testing.T) {
	expected := errors.New("broken")
	loader := lazy.New(func() (string, error) {
		return "", expected
	})

	_, err := loader.Load()
	require.ErrorIs(t, err, expected)
	require.Panics(t, func() { loader.MustLoad() })
}
