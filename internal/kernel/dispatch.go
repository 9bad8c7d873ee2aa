package kernel

import (
	"go.uber.org/zap"
)

// cursors are the per-class round-robin positions. They persist across
// dispatch passes.
type cursors struct {
	system     int
	periodic   int
	roundRobin int
}

// dispatch selects exactly one descriptor to run next. It returns errHalt when
// only the idle task is left and the kernel was asked to halt in that case.
func (k *Kernel) dispatch() error {
	k.matchPending()
	now := k.clock.Now()

	if d := pickRotating(k.table.system, &k.cursor.system); d != nil {
		k.run(d, now)
		return nil
	}

	d, err := k.pickPeriodic(now)
	if err != nil {
		return err
	}
	if d != nil {
		k.run(d, now)
		return nil
	}

	if d := pickRotating(k.table.roundRobin, &k.cursor.roundRobin); d != nil {
		k.run(d, now)
		return nil
	}

	if k.haltOnIdle && k.live == 0 {
		return errHalt
	}
	k.run(&k.table.idle, now)
	return nil
}

// matchPending completes every rendezvous whose receiver is now waiting.
func (k *Kernel) matchPending() {
	k.table.each(func(p *Descriptor) {
		if p.state != StateSendBlock {
			return
		}
		q, ok := k.table.lookup(p.peer)
		if !ok || !accepts(q, p.msgType) {
			return
		}
		k.rendezvous(p, q, p.msg)
	})
}

// pickRotating returns the first READY slot at or after the cursor and moves
// the cursor past it.
func pickRotating(slots []Descriptor, cursor *int) *Descriptor {
	n := len(slots)
	for i := 0; i < n; i++ {
		idx := (*cursor + i) % n
		if slots[idx].state == StateReady {
			*cursor = (idx + 1) % n
			return &slots[idx]
		}
	}
	return nil
}

// pickPeriodic updates release timing while scanning. A READY task keeps the
// CPU while it is within budget; a SUSPENDED task whose release time came is
// started on a fresh interval.
func (k *Kernel) pickPeriodic(now Tick) (*Descriptor, error) {
	slots := k.table.periodic
	n := len(slots)
	for i := 0; i < n; i++ {
		idx := (k.cursor.periodic + i) % n
		d := &slots[idx]
		switch d.state {
		case StateReady:
			observe(d, now)
			if d.runLength > d.wcet {
				return nil, k.abort(FaultWCETExceeded, d.pid)
			}
			k.cursor.periodic = idx
			return d, nil
		case StateSuspended:
			observe(d, now)
			if d.untilRelease > 0 {
				continue
			}
			d.runLength = 0
			d.untilRelease = int32(d.period)
			d.request = RequestNone
			k.cursor.periodic = idx
			k.emit(Event{Kind: EventRelease, PID: d.pid, Class: d.class})
			return d, nil
		}
	}
	return nil, nil
}

// observe charges the ticks elapsed since the last look to the release timer.
func observe(d *Descriptor, now Tick) {
	d.untilRelease -= int32(elapsed(now, d.lastObserved))
	d.lastObserved = now
}

func (k *Kernel) run(d *Descriptor, now Tick) {
	k.setState(d, StateRunning)
	d.runStart = now
	k.cp = d
	k.emit(Event{Kind: EventDispatch, PID: d.pid, Class: d.class, To: StateRunning, RunLength: d.runLength})
	if ce := k.log.Check(zap.DebugLevel, "dispatch"); ce != nil {
		ce.Write(zap.Uint16("pid", uint16(d.pid)), zap.Stringer("class", d.class), zap.Uint16("tick", uint16(now)))
	}
}
