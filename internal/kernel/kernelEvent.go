// internal/kernel/kernelEvent.go

package kernel

import (
	"time"

	"go.uber.org/zap"
)

// EventKind represents the type of kernel event
type EventKind int

const (
	EventCreate EventKind = iota
	EventDispatch
	EventTransition
	EventRelease
	EventPreempt
	EventAbort
	EventHalt
)

// Event is emitted on every state change and on key kernel actions
type Event struct {
	Time      time.Time
	Tick      Tick
	Kind      EventKind
	PID       PID
	Class     Class
	From      State
	To        State
	RunLength Tick
	Fault     Fault
}

func (ek EventKind) String() string {
	switch ek {
	case EventCreate:
		return "Create"
	case EventDispatch:
		return "Dispatch"
	case EventTransition:
		return "Transition"
	case EventRelease:
		return "Release"
	case EventPreempt:
		return "Preempt"
	case EventAbort:
		return "Abort"
	case EventHalt:
		return "Halt"
	default:
		return "Unknown"
	}
}

// eventBuffer is how many events may wait for the consumer.
const eventBuffer = 1024

// emit stamps ev and hands it on. While running, the kernel never waits for
// observers: the event is queued for the pump, or dropped if the queue is full.
func (k *Kernel) emit(ev Event) {
	if len(k.observers) == 0 && len(k.taps) == 0 {
		return
	}
	ev.Time = time.Now()
	ev.Tick = k.clock.Now()
	for _, fn := range k.taps {
		fn(ev)
	}
	if len(k.observers) == 0 {
		return
	}
	if k.events == nil {
		k.deliver(ev)
		return
	}
	select {
	case k.events <- ev:
	default:
		k.dropped++
	}
}

func (k *Kernel) deliver(ev Event) {
	for _, fn := range k.observers {
		fn(ev)
	}
}

// startPump starts the consumer that feeds observers while Run is active.
func (k *Kernel) startPump() {
	if len(k.observers) == 0 {
		return
	}
	k.events = make(chan Event, eventBuffer)
	k.pumpDone = make(chan struct{})
	go func(events <-chan Event, done chan<- struct{}) {
		defer close(done)
		for ev := range events {
			k.deliver(ev)
		}
	}(k.events, k.pumpDone)
}

// stopPump waits until every queued event has been delivered.
func (k *Kernel) stopPump() {
	if k.events == nil {
		return
	}
	close(k.events)
	<-k.pumpDone
	k.events = nil
	if k.dropped > 0 {
		k.log.Warn("kernel events dropped", zap.Int("count", k.dropped))
	}
}

// DroppedEvents returns how many events observers missed because they fell
// behind.
func (k *Kernel) DroppedEvents() int { return k.dropped }

// setState moves d to s through the transition table and reports the change.
func (k *Kernel) setState(d *Descriptor, s State) {
	from := d.state
	if from == s {
		return
	}
	if !CanTransition(from, s) {
		k.defect("illegal transition", d, from, s)
		return
	}
	d.state = s
	k.emit(Event{
		Kind:      EventTransition,
		PID:       d.pid,
		Class:     d.class,
		From:      from,
		To:        s,
		RunLength: d.runLength,
	})
}
