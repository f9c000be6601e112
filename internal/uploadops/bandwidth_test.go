package uploadops

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewBandwidthLimiter_Unlimited(t *testing.T) {
	assert.Nil(t, NewBandwidthLimiter(0, slog.Default()))
	assert.Nil(t, NewBandwidthLimiter(-5, slog.Default()))
}

func TestBandwidthLimiter_NilPassthrough(t *testing.T) {
	var bl *BandwidthLimiter

	r := bytes.NewReader([]byte("abc"))
	assert.Same(t, r, bl.WrapReader(context.Background(), r))
}

func TestBandwidthLimiter_ReadsAllBytes(t *testing.T) {
	bl := NewBandwidthLimiter(1<<20, slog.Default())
	require.NotNil(t, bl)

	data := bytes.Repeat([]byte{'z'}, 4096)

	got, err := io.ReadAll(bl.WrapReader(context.Background(), bytes.NewReader(data)))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBandwidthLimiter_Throttles(t *testing.T) {
	bl := NewBandwidthLimiter(1000, slog.Default())

	// Drain the initial burst so the next read has to wait.
	require.NoError(t, waitN(context.Background(), bl.limiter, bl.limiter.Burst()))

	start := time.Now()

	_, err := io.ReadAll(bl.WrapReader(context.Background(), bytes.NewReader(make([]byte, 200))))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestBandwidthLimiter_CanceledContext(t *testing.T) {
	bl := NewBandwidthLimiter(10, slog.Default())
	require.NoError(t, waitN(context.Background(), bl.limiter, bl.limiter.Burst()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := io.ReadAll(bl.WrapReader(ctx, bytes.NewReader(make([]byte, 50))))
	require.Error(t, err)
}

func TestWaitN_SplitsAboveBurst(t *testing.T) {
	lim := rate.NewLimiter(rate.Inf, 4)

	require.NoError(t, waitN(context.Background(), lim, 10))
}
