package kernel

import (
	"runtime"
)

// The stubs below are called from task code. Each one disables interrupts,
// leaves a request on the caller's descriptor and re-enters the kernel. Before
// Run they act directly on the table, or do nothing when there is no caller.

// CreateSystem creates a task in the SYSTEM class.
func (k *Kernel) CreateSystem(entry Entry, arg int) (PID, error) {
	return k.spawnTask(spawn{entry: entry, class: ClassSystem, arg: arg})
}

// CreateRoundRobin creates a task in the ROUND_ROBIN class.
func (k *Kernel) CreateRoundRobin(entry Entry, arg int) (PID, error) {
	return k.spawnTask(spawn{entry: entry, class: ClassRoundRobin, arg: arg})
}

// CreatePeriodic creates a PERIODIC task released every period ticks, first
// after offset ticks, allowed to run wcet ticks per period.
func (k *Kernel) CreatePeriodic(entry Entry, arg int, period, wcet, offset Tick) (PID, error) {
	if period == 0 || wcet == 0 {
		return NoPID, ErrBadTiming
	}
	return k.spawnTask(spawn{
		entry:  entry,
		class:  ClassPeriodic,
		arg:    arg,
		period: period,
		wcet:   wcet,
		offset: offset,
	})
}

// CreateIdle creates the idle task. It is a no-op when one exists.
func (k *Kernel) CreateIdle() (PID, error) {
	return k.spawnTask(spawn{entry: k.idle, class: ClassIdle})
}

func (k *Kernel) spawnTask(sp spawn) (PID, error) {
	if sp.entry == nil {
		return NoPID, ErrNilEntry
	}
	if !k.active {
		return k.create(sp)
	}
	cp := k.cp
	k.irq.disable()
	cp.staged = &sp
	cp.request = RequestCreate
	k.enter()
	return cp.spawn, nil
}

// Yield gives up the CPU voluntarily.
func (k *Kernel) Yield() {
	if !k.active {
		return
	}
	k.irq.disable()
	k.cp.request = RequestNext
	k.enter()
}

// Terminate ends the calling task. It does not return.
func (k *Kernel) Terminate() {
	if !k.active {
		return
	}
	k.irq.disable()
	k.cp.request = RequestTerminate
	k.enter()
	runtime.Goexit()
}

// Arg returns the argument the calling task was created with.
func (k *Kernel) Arg() int {
	if k.cp == nil {
		return 0
	}
	return k.cp.arg
}

// Self returns the calling task's pid.
func (k *Kernel) Self() PID {
	if k.cp == nil {
		return NoPID
	}
	return k.cp.pid
}

// Now returns the current tick.
func (k *Kernel) Now() Tick {
	return k.clock.Now()
}

// Busy burns n ticks of CPU time. Every tick is delivered as an interrupt,
// so the kernel regains control n times.
func (k *Kernel) Busy(n Tick) {
	for i := Tick(0); i < n; i++ {
		k.interrupt()
	}
}

// Checkpoint delivers a pending tick interrupt, if the clock moved since the
// last one was delivered.
func (k *Kernel) Checkpoint() {
	if !k.active || !k.irq.Enabled() {
		return
	}
	if k.clock.Now() == k.lastIRQ {
		return
	}
	k.tick()
}

// interrupt waits for the next fresh tick and takes it.
func (k *Kernel) interrupt() {
	if !k.active {
		return
	}
	// a real clock keeps signalling ticks that fired while nobody waited;
	// only a tick counted after this point is taken
	start := k.clock.Now()
	for k.clock.Now() == start {
		if err := k.clock.Await(k.ctx); err != nil {
			// the kernel is shutting down; unwind this task
			runtime.Goexit()
		}
	}
	k.tick()
}

// tick is the interrupt entry: the request stays NONE, exactly like a
// voluntary call that asks for nothing.
func (k *Kernel) tick() {
	k.irq.disable()
	k.lastIRQ = k.clock.Now()
	k.emit(Event{Kind: EventPreempt, PID: k.cp.pid, Class: k.cp.class, RunLength: k.cp.runLength})
	k.enter()
}

// idle keeps the CPU occupied until an interrupt brings new work.
func (k *Kernel) idle() {
	for {
		k.interrupt()
	}
}

// enter is the bottom half of the context switch, seen from the task.
func (k *Kernel) enter() {
	k.sw.Enter(k.cp.snapshot)
}
