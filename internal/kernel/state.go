// internal/kernel/state.go

package kernel

import "fmt"

// Class is the execution class of a task, ordered from lowest to highest priority.
type Class uint8

const (
	ClassIdle Class = iota
	ClassRoundRobin
	ClassPeriodic
	ClassSystem
)

func (c Class) String() string {
	switch c {
	case ClassIdle:
		return "Idle"
	case ClassRoundRobin:
		return "RoundRobin"
	case ClassPeriodic:
		return "Periodic"
	case ClassSystem:
		return "System"
	default:
		return "Unknown"
	}
}

// State is the lifecycle state of a descriptor.
type State uint8

const (
	StateDead State = iota
	StateReady
	StateRunning
	StateSuspended
	StateSendBlock
	StateRecvBlock
	StateReplyBlock
	StateIdle // the idle task while it is not running
	numStates
)

func (s State) String() string {
	switch s {
	case StateDead:
		return "DEAD"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateSuspended:
		return "SUSPENDED"
	case StateSendBlock:
		return "SNDBLOCK"
	case StateRecvBlock:
		return "RCVBLOCK"
	case StateReplyBlock:
		return "RPYBLOCK"
	case StateIdle:
		return "IDLE"
	default:
		return "UNKNOWN"
	}
}

// Blocked reports whether s is one of the IPC-blocked states.
func (s State) Blocked() bool {
	return s == StateSendBlock || s == StateRecvBlock || s == StateReplyBlock
}

// transitions lists every legal state change. Anything else is a kernel defect.
var transitions = [numStates][numStates]bool{
	StateDead: {
		StateReady:     true,
		StateSuspended: true,
		StateIdle:      true,
	},
	StateReady: {
		StateRunning: true,
	},
	StateIdle: {
		StateRunning: true,
	},
	StateSuspended: {
		StateRunning: true,
	},
	StateRunning: {
		StateReady:      true,
		StateSuspended:  true,
		StateDead:       true,
		StateSendBlock:  true,
		StateRecvBlock:  true,
		StateReplyBlock: true,
		StateIdle:       true,
	},
	StateSendBlock: {
		StateReplyBlock: true,
	},
	StateRecvBlock: {
		StateReady: true,
	},
	StateReplyBlock: {
		StateReady: true,
	},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	if from >= numStates || to >= numStates {
		return false
	}
	return transitions[from][to]
}

// Request is the pending kernel request code a task leaves on its descriptor.
type Request uint8

const (
	RequestNone Request = iota
	RequestCreate
	RequestNext
	RequestTerminate
	RequestWaiting
)

func (r Request) String() string {
	switch r {
	case RequestNone:
		return "NONE"
	case RequestCreate:
		return "CREATE"
	case RequestNext:
		return "NEXT"
	case RequestTerminate:
		return "TERMINATE"
	case RequestWaiting:
		return "WAITING"
	default:
		return fmt.Sprintf("Request(%d)", uint8(r))
	}
}
