package kernel

import (
	"go.uber.org/zap"
)

// create brings a DEAD slot to life. It runs either directly (before Run) or
// inside the request loop on behalf of a CREATE request.
func (k *Kernel) create(sp spawn) (PID, error) {
	if sp.class == ClassIdle {
		return k.createIdle(sp)
	}
	if k.live >= k.cfg.MaxTasks {
		return NoPID, k.abort(FaultTooManyTasks, NoPID)
	}
	d, ok := k.table.freeSlot(sp.class)
	if !ok {
		return NoPID, k.abort(FaultQueueSpaceExceeded, NoPID)
	}

	pid := k.nextPID()
	k.prepare(d, pid, sp)
	if sp.class == ClassPeriodic {
		d.period = sp.period
		d.wcet = sp.wcet
		d.offset = sp.offset
		d.runLength = 0
		d.untilRelease = int32(sp.offset)
		d.lastObserved = k.clock.Now()
		d.request = RequestWaiting
		k.setState(d, StateSuspended)
	} else {
		d.request = RequestNone
		k.setState(d, StateReady)
	}

	k.table.register(d)
	k.live++
	k.emit(Event{Kind: EventCreate, PID: pid, Class: d.class, To: d.state})
	k.log.Debug("task created",
		zap.Uint16("pid", uint16(pid)),
		zap.Stringer("class", d.class),
		zap.Int("slot", d.slot),
		zap.Int("arg", sp.arg),
	)
	return pid, nil
}

func (k *Kernel) createIdle(sp spawn) (PID, error) {
	d := &k.table.idle
	if d.state != StateDead {
		return NoPID, nil
	}
	k.prepare(d, NoPID, sp)
	d.request = RequestNone
	k.setState(d, StateIdle)
	k.emit(Event{Kind: EventCreate, PID: NoPID, Class: ClassIdle, To: StateIdle})
	return NoPID, nil
}

// prepare seeds the slot so that its first resumption calls the entry point
// and a return from the entry point falls into the termination path.
func (k *Kernel) prepare(d *Descriptor, pid PID, sp spawn) {
	d.reset()
	d.pid = pid
	d.entry = sp.entry
	d.arg = sp.arg
	d.snapshot = k.sw.Prepare(sp.entry, k.exit)
}

// exit is the fallback continuation of every task.
func (k *Kernel) exit() {
	k.Terminate()
}

// reap turns a terminated descriptor back into a free slot.
func (k *Kernel) reap(d *Descriptor) {
	pid := d.pid
	k.setState(d, StateDead)
	k.table.unregister(pid)
	k.live--
	k.sw.Discard(d.snapshot)
	d.reset()
	k.log.Debug("task terminated", zap.Uint16("pid", uint16(pid)), zap.Stringer("class", d.class))
}

// nextPID hands out ids monotonically, skipping NoPID and ids still in use
// after the counter wraps.
func (k *Kernel) nextPID() PID {
	for {
		k.lastPID++
		if k.lastPID == NoPID {
			continue
		}
		if _, taken := k.table.lookup(k.lastPID); !taken {
			return k.lastPID
		}
	}
}
