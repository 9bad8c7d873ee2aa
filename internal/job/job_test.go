package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fsrtos/internal/kernel"
)

func run(t *testing.T, k *kernel.Kernel) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, k.Run(ctx))
}

func TestPingPong(t *testing.T) {
	ass := assert.New(t)
	k := kernel.New(kernel.DefaultConfig(), kernel.WithHaltOnIdle())

	var (
		pong    kernel.PID
		replies []uint32
		senders []kernel.PID
	)
	pong, err := k.CreateRoundRobin(Pong(k, 3, func(from kernel.PID, _ uint32) { senders = append(senders, from) }), 0)
	require.NoError(t, err)
	ping, err := k.CreateRoundRobin(Ping(k, func() kernel.PID { return pong }, 3, func(r uint32) { replies = append(replies, r) }), 0)
	require.NoError(t, err)

	run(t, k)
	ass.Equal([]uint32{1, 2, 3}, replies)
	ass.Equal([]kernel.PID{ping, ping, ping}, senders)
}

func TestWorkers(t *testing.T) {
	ass := assert.New(t)
	k := kernel.New(kernel.DefaultConfig(), kernel.WithHaltOnIdle())

	var order []kernel.PID
	report := func(pid kernel.PID) { order = append(order, pid) }
	a, err := k.CreateRoundRobin(Worker(k, 2, report), 0)
	require.NoError(t, err)
	b, err := k.CreateRoundRobin(Worker(k, 2, report), 0)
	require.NoError(t, err)

	run(t, k)
	ass.Equal([]kernel.PID{a, b, a, b}, order)
}

func TestSamplerAndBusyWork(t *testing.T) {
	ass := assert.New(t)
	clock := kernel.NewVirtualClock()
	k := kernel.New(kernel.DefaultConfig(), kernel.WithClock(clock), kernel.WithHaltOnIdle())

	var (
		reads   int
		samples []int
		at      []kernel.Tick
	)
	_, err := k.CreatePeriodic(Sampler(k, 3, 2,
		func() int { reads++; return reads * 10 },
		func(v int) { samples = append(samples, v); at = append(at, k.Now()) },
	), 0, 8, 4, 0)
	require.NoError(t, err)
	_, err = k.CreateRoundRobin(BusyWork(k, 5), 0)
	require.NoError(t, err)

	run(t, k)
	ass.Equal([]int{10, 20, 30}, samples)
	ass.Equal([]kernel.Tick{2, 10, 18}, at)
}

func TestApp(t *testing.T) {
	ass := assert.New(t)
	k := kernel.New(kernel.DefaultConfig(), kernel.WithHaltOnIdle(),
		kernel.WithLogger(zaptest.NewLogger(t)))

	cfg := DefaultApp()
	cfg.Rounds = 4
	cfg.Samples = 2
	_, err := k.CreateSystem(App(k, cfg, zaptest.NewLogger(t)), 0)
	require.NoError(t, err)

	run(t, k)
	ass.Nil(k.Fault())
	ass.Zero(k.Live())
}
