package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsrtos/internal/kernel"
)

func TestBlinker_Distress(t *testing.T) {
	tests := []struct {
		fault kernel.Fault
		want  int
	}{
		{kernel.FaultTooManyTasks, 3},
		{kernel.FaultWCETExceeded, 6},
		{kernel.FaultPIDNotFound, 9},
		{kernel.FaultQueueSpaceExceeded, 12},
	}
	for _, tt := range tests {
		t.Run(tt.fault.String(), func(t *testing.T) {
			ass := assert.New(t)
			b := NewBlinker(nil, time.Millisecond)
			var slept time.Duration
			b.sleep = func(d time.Duration) { slept += d }

			b.Distress(tt.fault)
			ass.Equal(tt.want, b.Blinks())
			ass.Equal([]kernel.Fault{tt.fault}, b.Faults())
			// two phases per blink, a gap per round, the settle time
			ass.Equal(time.Duration(2*tt.want+3*5+30)*time.Millisecond, slept)
		})
	}
}

func TestBlinker_ZeroPeriodNeverSleeps(t *testing.T) {
	b := NewBlinker(nil, 0)
	b.sleep = func(time.Duration) { t.Fatal("slept") }
	b.Distress(kernel.FaultInternal)
	assert.Equal(t, 15, b.Blinks())
}

func TestSupervisor_RestartsAfterAbort(t *testing.T) {
	ass := assert.New(t)
	var boots []Boot
	sup := &Supervisor{MaxRestarts: 3}

	err := sup.Run(context.Background(), func(_ context.Context, b Boot) error {
		boots = append(boots, b)
		if b.Seq < 2 {
			return &kernel.AbortError{Fault: kernel.FaultWCETExceeded, PID: 1}
		}
		return nil
	})
	ass.NoError(err)
	require.Len(t, boots, 3)
	seen := map[uuid.UUID]bool{}
	for i, b := range boots {
		ass.Equal(i, b.Seq)
		ass.False(seen[b.ID], "boot ids are unique")
		seen[b.ID] = true
	}
}

func TestSupervisor_GivesUp(t *testing.T) {
	ass := assert.New(t)
	calls := 0
	sup := &Supervisor{MaxRestarts: 2}

	err := sup.Run(context.Background(), func(context.Context, Boot) error {
		calls++
		return &kernel.AbortError{Fault: kernel.FaultTooManyTasks}
	})
	ass.Equal(3, calls)
	ae, ok := kernel.IsAbort(err)
	require.True(t, ok)
	ass.Equal(kernel.FaultTooManyTasks, ae.Fault)
	ass.Contains(err.Error(), "giving up after 2 restarts")
}

func TestSupervisor_PassesOtherErrors(t *testing.T) {
	ass := assert.New(t)
	boom := errors.New("boom")
	sup := &Supervisor{}

	err := sup.Run(context.Background(), func(context.Context, Boot) error { return boom })
	ass.ErrorIs(err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sup.Run(ctx, func(context.Context, Boot) error {
		return &kernel.AbortError{Fault: kernel.FaultInternal}
	})
	ass.ErrorIs(err, context.Canceled)
}

func TestSupervisor_RebootsKernel(t *testing.T) {
	ass := assert.New(t)
	blinker := NewBlinker(nil, 0)
	sup := &Supervisor{MaxRestarts: 1}

	var busy []kernel.Tick
	err := sup.Run(context.Background(), func(ctx context.Context, b Boot) error {
		k := kernel.New(kernel.DefaultConfig(), kernel.WithSignaler(blinker), kernel.WithHaltOnIdle())
		// the first boot overruns its budget
		cost := kernel.Tick(4)
		if b.Seq == 0 {
			cost = 9
		}
		if _, err := k.CreatePeriodic(func() {
			k.Busy(cost)
			busy = append(busy, cost)
		}, 0, 10, 5, 0); err != nil {
			return err
		}
		return k.Run(ctx)
	})
	ass.NoError(err)
	ass.Equal([]kernel.Tick{4}, busy)
	ass.Equal([]kernel.Fault{kernel.FaultWCETExceeded}, blinker.Faults())
	ass.Equal(6, blinker.Blinks())
}
