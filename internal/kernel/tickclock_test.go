package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualClock(t *testing.T) {
	ass := assert.New(t)
	c := NewVirtualClock()
	ass.Equal(Tick(0), c.Now())

	require.NoError(t, c.Await(context.Background()))
	require.NoError(t, c.Await(context.Background()))
	ass.Equal(Tick(2), c.Now())

	c.Advance(5)
	ass.Equal(Tick(7), c.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ass.ErrorIs(c.Await(ctx), context.Canceled)
	ass.Equal(Tick(7), c.Now())
}

func TestTickClock(t *testing.T) {
	ass := assert.New(t)
	c := NewTickClock(4)
	c.Start(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Await(ctx))
	require.NoError(t, c.Await(ctx))
	ass.GreaterOrEqual(c.Now(), Tick(2))

	c.Stop()
	c.Stop()
	// drain what was buffered before the stop
	var err error
	for i := 0; i < 16 && err == nil; i++ {
		err = c.Await(ctx)
	}
	ass.ErrorIs(err, context.Canceled)
}

func TestElapsedWraps(t *testing.T) {
	ass := assert.New(t)
	ass.Equal(Tick(5), elapsed(10, 5))
	ass.Equal(Tick(3), elapsed(1, 0xFFFE))
}
