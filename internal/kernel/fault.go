package kernel

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Fault is an abort code. The numeric value is the length of the distress
// blink pattern.
type Fault uint8

const (
	FaultNone Fault = iota
	FaultTooManyTasks
	FaultWCETExceeded
	FaultPIDNotFound
	FaultQueueSpaceExceeded
	FaultInternal // unknown request code or illegal state change
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "NO_ERROR"
	case FaultTooManyTasks:
		return "TOO_MANY_TASKS"
	case FaultWCETExceeded:
		return "WCET_EXCEEDED"
	case FaultPIDNotFound:
		return "PID_NOT_FOUND"
	case FaultQueueSpaceExceeded:
		return "QUEUE_SPACE_EXCEEDED"
	case FaultInternal:
		return "INTERNAL"
	default:
		return fmt.Sprintf("Fault(%d)", uint8(f))
	}
}

// AbortError is the terminal failure signal. Nothing is recovered in place;
// the host is expected to reset the system.
type AbortError struct {
	Fault Fault
	PID   PID
	Tick  Tick
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("kernel abort: %s (code %d) pid=%d tick=%d", e.Fault, uint8(e.Fault), e.PID, e.Tick)
}

// IsAbort reports whether err carries an abort and returns it.
func IsAbort(err error) (*AbortError, bool) {
	var ae *AbortError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

var (
	ErrNoTasks   = errors.New("kernel: no tasks created")
	ErrRunning   = errors.New("kernel: already running")
	ErrStopped   = errors.New("kernel: already stopped, build a new kernel")
	ErrNilEntry  = errors.New("kernel: nil task entry")
	ErrBadTiming = errors.New("kernel: periodic task needs period > 0 and wcet > 0")

	errHalt = errors.New("halt")
)

// Signaler produces the hardware-visible distress signal for an abort.
type Signaler interface {
	Distress(f Fault)
}

type nopSignaler struct{}

func (nopSignaler) Distress(Fault) {}

// abort records the first fault, disables interrupts for good and signals it.
// Later calls return the fault already recorded.
func (k *Kernel) abort(f Fault, pid PID) error {
	if k.fault != nil {
		return k.fault
	}
	k.irq.disable()
	k.fault = &AbortError{Fault: f, PID: pid, Tick: k.clock.Now()}
	k.log.Error("kernel abort",
		zap.Stringer("fault", f),
		zap.Uint16("pid", uint16(pid)),
		zap.Uint16("tick", uint16(k.fault.Tick)),
	)
	k.emit(Event{Kind: EventAbort, PID: pid, Fault: f})
	k.signaler.Distress(f)
	return k.fault
}

// trap aborts from the task side. It hands control back to the kernel loop,
// which stops on the recorded fault, so it never returns.
func (k *Kernel) trap(f Fault, pid PID) {
	_ = k.abort(f, pid)
	k.enter()
}

// defect reports an internal-consistency failure.
func (k *Kernel) defect(what string, d *Descriptor, from, to State) {
	k.log.Error("kernel defect",
		zap.String("what", what),
		zap.Uint16("pid", uint16(d.pid)),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Stringer("request", d.request),
	)
	_ = k.abort(FaultInternal, d.pid)
}
