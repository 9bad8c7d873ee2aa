// internal/kernel/kernel.go

package kernel

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Kernel is a full-served real-time kernel: tasks run on their own contexts
// and every task/kernel transition goes through the request loop in Run.
type Kernel struct {
	// collaborators
	cfg        Config
	log        *zap.Logger
	clock      Clock
	sw         Switcher
	signaler   Signaler
	observers  []func(Event)
	taps       []func(Event)
	haltOnIdle bool

	// descriptor table and dispatcher state
	table   *table
	cursor  cursors
	cp      *Descriptor // the RUNNING descriptor
	lastPID PID
	live    int // non-idle tasks alive

	ctx     context.Context
	active  bool
	stopped bool
	irq     interrupts
	lastIRQ Tick
	fault   *AbortError

	// event stream, drained by pump while running
	events   chan Event
	pumpDone chan struct{}
	dropped  int
}

// Option configures a Kernel.
type Option func(*Kernel)

func WithLogger(l *zap.Logger) Option { return func(k *Kernel) { k.log = l } }

func WithClock(c Clock) Option { return func(k *Kernel) { k.clock = c } }

func WithSwitcher(s Switcher) Option { return func(k *Kernel) { k.sw = s } }

func WithSignaler(s Signaler) Option { return func(k *Kernel) { k.signaler = s } }

// WithObserver subscribes fn to the event stream. While the kernel runs,
// observers are called in order from a consumer goroutine, never from inside
// the kernel; events that find the buffer full are dropped and counted.
// Before Run and after it returns they are called in place. Observers must not
// call back into the kernel.
func WithObserver(fn func(Event)) Option {
	return func(k *Kernel) { k.observers = append(k.observers, fn) }
}

// withTap installs a hook called synchronously inside the kernel on every
// event. It must not block.
func withTap(fn func(Event)) Option {
	return func(k *Kernel) { k.taps = append(k.taps, fn) }
}

// WithHaltOnIdle makes Run return nil instead of running the idle task once
// no other task is alive.
func WithHaltOnIdle() Option { return func(k *Kernel) { k.haltOnIdle = true } }

// New creates a kernel with an empty descriptor table.
func New(cfg Config, opts ...Option) *Kernel {
	cfg = cfg.Sanitize()
	k := &Kernel{
		cfg:      cfg,
		log:      zap.NewNop(),
		signaler: nopSignaler{},
		table:    newTable(cfg),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.clock == nil {
		k.clock = NewVirtualClock()
	}
	if k.sw == nil {
		k.sw = NewFiberSwitcher()
	}
	return k
}

// Run starts the kernel and drives the request loop until the kernel halts,
// aborts or ctx is cancelled. A kernel runs at most once.
func (k *Kernel) Run(ctx context.Context) error {
	switch {
	case k.active:
		return ErrRunning
	case k.stopped:
		return ErrStopped
	case k.fault != nil:
		return k.fault
	case k.live == 0:
		return ErrNoTasks
	}
	if k.table.idle.state == StateDead {
		_, _ = k.CreateIdle()
	}

	k.ctx = ctx
	k.startPump()
	k.active = true
	k.irq.disable()
	k.lastIRQ = k.clock.Now()
	defer func() {
		k.active = false
		k.stopped = true
		k.sw.Close()
		k.stopPump()
	}()

	k.log.Info("kernel started", zap.Int("tasks", k.live), zap.Int("tick_ms", k.cfg.TickMS))
	return k.finish(k.loop(ctx))
}

func (k *Kernel) loop(ctx context.Context) error {
	if err := k.dispatch(); err != nil {
		return err
	}

	for {
		// 1) check shutdown and faults
		if err := ctx.Err(); err != nil {
			return err
		}
		if k.fault != nil {
			return k.fault
		}

		// 2) resume the selected task; it runs until it calls into the kernel
		d := k.cp
		if d.request != RequestWaiting {
			d.request = RequestNone
		}
		k.irq.enable()
		d.snapshot = k.sw.Resume(d.snapshot)
		k.irq.disable()

		if k.fault != nil {
			return k.fault
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// 3) account periodic run time, then serve the request
		if d.class == ClassPeriodic {
			if err := k.charge(d); err != nil {
				return err
			}
		}
		if err := k.serve(d); err != nil {
			return err
		}
		if err := k.dispatch(); err != nil {
			return err
		}
	}
}

// serve performs the state transition requested by d.
func (k *Kernel) serve(d *Descriptor) error {
	switch d.request {
	case RequestCreate:
		sp := d.staged
		d.staged = nil
		if sp == nil {
			return k.abort(FaultInternal, d.pid)
		}
		pid, err := k.create(*sp)
		if err != nil {
			return err
		}
		d.spawn = pid
		k.yield(d, false)
	case RequestNext:
		k.yield(d, true)
	case RequestNone:
		// a tick, or a stub that only re-enters
		k.yield(d, false)
	case RequestTerminate:
		k.reap(d)
	case RequestWaiting:
		// the stub already moved d
	default:
		k.log.Error("unknown kernel request", zap.Stringer("request", d.request), zap.Uint16("pid", uint16(d.pid)))
		return k.abort(FaultInternal, d.pid)
	}
	return nil
}

// yield takes d off the CPU. A periodic task that gives up the CPU on its own
// waits for its next release.
func (k *Kernel) yield(d *Descriptor, voluntary bool) {
	switch {
	case d.class == ClassIdle:
		k.setState(d, StateIdle)
	case d.class == ClassPeriodic && voluntary:
		k.setState(d, StateSuspended)
		d.request = RequestWaiting
	default:
		k.setState(d, StateReady)
	}
}

// charge adds the ticks d just spent RUNNING to its run length.
func (k *Kernel) charge(d *Descriptor) error {
	now := k.clock.Now()
	d.runLength += elapsed(now, d.runStart)
	d.runStart = now
	if d.runLength > d.wcet {
		return k.abort(FaultWCETExceeded, d.pid)
	}
	return nil
}

func (k *Kernel) finish(err error) error {
	if err == errHalt {
		k.emit(Event{Kind: EventHalt})
		k.log.Info("kernel halted", zap.Uint16("tick", uint16(k.clock.Now())))
		return nil
	}
	if err != nil {
		k.log.Info("kernel stopped", zap.Error(err))
	}
	return err
}

// Tasks returns every slot, dead or alive, idle first.
func (k *Kernel) Tasks() []TaskInfo {
	var out []TaskInfo
	k.table.all(func(d *Descriptor) { out = append(out, d.info()) })
	return out
}

// Lookup returns the live task with the given pid.
func (k *Kernel) Lookup(pid PID) (TaskInfo, bool) {
	d, ok := k.table.lookup(pid)
	if !ok {
		return TaskInfo{}, false
	}
	return d.info(), true
}

// Live returns the number of non-idle tasks alive.
func (k *Kernel) Live() int { return k.live }

// Fault returns the recorded abort, if any.
func (k *Kernel) Fault() *AbortError { return k.fault }

// interrupts is the critical-section guard. Kernel code runs with it
// disabled; resuming a task enables it.
type interrupts struct {
	enabled atomic.Bool
}

func (i *interrupts) disable() bool { return i.enabled.Swap(false) }

func (i *interrupts) enable() { i.enabled.Store(true) }

func (i *interrupts) Enabled() bool { return i.enabled.Load() }

// InterruptsEnabled reports whether tick interrupts can be delivered now.
func (k *Kernel) InterruptsEnabled() bool { return k.irq.Enabled() }
