package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	sm := NewShutdownManager(logger, 0)
	assert.Equal(t, 5*time.Second, sm.shutdownTimeout)

	sm = NewShutdownManager(logger, time.Second)
	assert.Equal(t, time.Second, sm.shutdownTimeout)
}

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NewLogger(InfoLevel, &bytes.Buffer{}), time.Second)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		sm.RegisterShutdownFunc(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, []string{"third", "second", "first"}, order)

	// Functions run once
	require.NoError(t, sm.Shutdown())
	assert.Len(t, order, 3)
}

func TestShutdownManager_JoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	sm := NewShutdownManager(NewLogger(InfoLevel, &buf), time.Second)

	errWatcher := errors.New("watcher closed twice")
	ran := false
	sm.RegisterShutdownFunc("cleanup", func(context.Context) error {
		ran = true
		return nil
	})
	sm.RegisterShutdownFunc("watcher", func(context.Context) error { return errWatcher })

	err := sm.Shutdown()
	assert.ErrorIs(t, err, errWatcher)
	assert.True(t, ran)
	assert.Contains(t, buf.String(), "Stopping watcher failed")
}
