// internal/kernel/task.go

package kernel

// PID identifies a task for its whole lifetime. PIDs are assigned monotonically.
type PID uint16

// NoPID is the idle task's id and the sender id reported for async deliveries.
const NoPID PID = 0

// Tick is one unit of the hardware timer. The counter wraps.
type Tick uint16

// MsgType tags a message; MsgMask is the set of types a receiver accepts.
type (
	MsgType uint8
	MsgMask uint8
)

// AcceptAll accepts every message type.
const AcceptAll MsgMask = 0xFF

// Entry is a task's entry point.
type Entry func()

// Descriptor is one task slot. Every field is owned by the kernel.
type Descriptor struct {
	pid      PID
	class    Class
	slot     int
	state    State
	request  Request
	entry    Entry
	arg      int
	snapshot Snapshot // saved execution context

	// IPC
	mask    MsgMask // accepted types while RCVBLOCK
	msgType MsgType // type being sent while SNDBLOCK
	peer    PID     // target while SNDBLOCK, sender once woken
	msg     uint32  // payload in, reply out

	// periodic bookkeeping
	period       Tick
	wcet         Tick
	offset       Tick
	runLength    Tick  // ticks spent RUNNING in the current period
	untilRelease int32 // ticks until the next release
	lastObserved Tick  // tick of the last release bookkeeping update
	runStart     Tick  // tick at which the task was last resumed

	// staged by the create stub, consumed by RequestCreate
	staged *spawn
	spawn  PID // result of the last staged create
}

// spawn is a creation order staged on the caller's descriptor.
type spawn struct {
	entry  Entry
	class  Class
	arg    int
	period Tick
	wcet   Tick
	offset Tick
}

// TaskInfo is a read-only view of a descriptor.
type TaskInfo struct {
	PID       PID
	Class     Class
	Slot      int
	State     State
	Request   Request
	Arg       int
	Period    Tick
	WCET      Tick
	RunLength Tick
}

func (d *Descriptor) info() TaskInfo {
	return TaskInfo{
		PID:       d.pid,
		Class:     d.class,
		Slot:      d.slot,
		State:     d.state,
		Request:   d.request,
		Arg:       d.arg,
		Period:    d.period,
		WCET:      d.wcet,
		RunLength: d.runLength,
	}
}

// reset returns the slot to its zero DEAD form, keeping its position.
func (d *Descriptor) reset() {
	class, slot := d.class, d.slot
	*d = Descriptor{class: class, slot: slot}
}
