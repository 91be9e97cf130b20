package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestController_FlushSlots(t *testing.T) {
	c := NewController(Config{MaxConcurrentFlushes: 1})

	require.NoError(t, c.AcquireFlush(context.Background()))
	require.False(t, c.TryAcquireFlush(), "single slot is taken")

	c.ReleaseFlush()
	require.True(t, c.TryAcquireFlush())
	c.ReleaseFlush()
}

func TestController_AcquireFlushHonorsContext(t *testing.T) {
	c := NewController(Config{MaxConcurrentFlushes: 1})
	require.NoError(t, c.AcquireFlush(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, c.AcquireFlush(ctx))
}

func TestController_IOUnlimitedByDefault(t *testing.T) {
	c := NewController(Config{})
	require.NoError(t, c.AcquireIO(context.Background(), 1<<30))
}

func TestController_IOSplitsLargeRequests(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	// Twice the burst must not error out, only wait.
	require.NoError(t, c.AcquireIO(context.Background(), 1<<21))
}

func TestController_NilDisablesLimits(t *testing.T) {
	var c *Controller
	require.NoError(t, c.AcquireFlush(context.Background()))
	require.True(t, c.TryAcquireFlush())
	c.ReleaseFlush()
	require.NoError(t, c.AcquireIO(context.Background(), 123))
}
