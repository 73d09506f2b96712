package lifecycle_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JaimeStill/emoclassify/pkg/lifecycle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStartupAndShutdown(t *testing.T) {
	lc := lifecycle.New(context.Background())

	var started, stopped atomic.Int32
	for range 3 {
		lc.OnStartup("hook", func(ctx context.Context) error {
			started.Add(1)
			return nil
		})
		lc.OnShutdown(func() { stopped.Add(1) })
	}

	assert.False(t, lc.Ready())
	require.NoError(t, lc.WaitForStartup())
	assert.True(t, lc.Ready())
	assert.Equal(t, int32(3), started.Load())
	assert.Zero(t, stopped.Load())

	require.NoError(t, lc.Shutdown(time.Second))
	assert.Equal(t, int32(3), stopped.Load())
	assert.Error(t, lc.Context().Err())
}

func TestStartupFailure(t *testing.T) {
	lc := lifecycle.New(context.Background())
	errPing := errors.New("connection refused")

	lc.OnStartup("database", func(ctx context.Context) error { return errPing })
	lc.OnStartup("storage", func(ctx context.Context) error { return nil })

	err := lc.WaitForStartup()
	assert.ErrorIs(t, err, errPing)
	assert.ErrorContains(t, err, "database")
	assert.False(t, lc.Ready())

	require.NoError(t, lc.Shutdown(time.Second))
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New(context.Background())
	release := make(chan struct{})

	lc.OnShutdown(func() { <-release })

	err := lc.Shutdown(10 * time.Millisecond)
	assert.ErrorContains(t, err, "shutdown timeout")

	close(release)
}
