// Package board holds the host-side collaborators of the kernel: the
// distress signal shown on an abort and the reset supervisor.
package board

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"fsrtos/internal/kernel"
)

// Blinker emulates the status LED: on an abort it blinks the fault code
// three times, pausing between rounds, then settles before the reset.
type Blinker struct {
	log    *zap.Logger
	period time.Duration // one on or off phase
	sleep  func(time.Duration)

	mu     sync.Mutex
	blinks int
	faults []kernel.Fault
}

const blinkRounds = 3

// NewBlinker returns a Blinker with the given half-period. Zero means no delay.
func NewBlinker(log *zap.Logger, period time.Duration) *Blinker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Blinker{log: log, period: period, sleep: time.Sleep}
}

// Distress implements kernel.Signaler.
func (b *Blinker) Distress(f kernel.Fault) {
	b.mu.Lock()
	b.faults = append(b.faults, f)
	b.mu.Unlock()

	for round := 0; round < blinkRounds; round++ {
		for i := 0; i < int(f); i++ {
			b.led(true)
			b.pause(b.period)
			b.led(false)
			b.pause(b.period)
		}
		b.pause(5 * b.period)
	}
	b.log.Warn("distress signal done", zap.Stringer("fault", f), zap.Int("code", int(f)))
	b.pause(30 * b.period)
}

func (b *Blinker) led(on bool) {
	if !on {
		return
	}
	b.mu.Lock()
	b.blinks++
	b.mu.Unlock()
}

func (b *Blinker) pause(d time.Duration) {
	if d > 0 {
		b.sleep(d)
	}
}

// Blinks returns how many times the LED was switched on.
func (b *Blinker) Blinks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blinks
}

// Faults returns the faults signalled so far.
func (b *Blinker) Faults() []kernel.Fault {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]kernel.Fault(nil), b.faults...)
}
