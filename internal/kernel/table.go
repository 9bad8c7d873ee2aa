package kernel

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// table holds the fixed slot arrays per class plus the idle slot, and the
// pid -> descriptor index used by IPC.
type table struct {
	system     []Descriptor
	periodic   []Descriptor
	roundRobin []Descriptor
	idle       Descriptor
	pids       *redblacktree.Tree // PID -> *Descriptor, ascending
}

func newTable(cfg Config) *table {
	t := &table{
		system:     make([]Descriptor, cfg.SystemSlots),
		periodic:   make([]Descriptor, cfg.PeriodicSlots),
		roundRobin: make([]Descriptor, cfg.RoundRobinSlots),
		idle:       Descriptor{class: ClassIdle},
		pids:       redblacktree.NewWith(pidCmp),
	}
	for class, slots := range map[Class][]Descriptor{
		ClassSystem:     t.system,
		ClassPeriodic:   t.periodic,
		ClassRoundRobin: t.roundRobin,
	} {
		for i := range slots {
			slots[i].class = class
			slots[i].slot = i
		}
	}
	return t
}

// slots returns the array for a class; idle has no array.
func (t *table) slots(c Class) []Descriptor {
	switch c {
	case ClassSystem:
		return t.system
	case ClassPeriodic:
		return t.periodic
	case ClassRoundRobin:
		return t.roundRobin
	default:
		return nil
	}
}

// freeSlot is a first-fit search by ascending slot index.
func (t *table) freeSlot(c Class) (*Descriptor, bool) {
	slots := t.slots(c)
	for i := range slots {
		if slots[i].state == StateDead {
			return &slots[i], true
		}
	}
	return nil, false
}

func (t *table) register(d *Descriptor) {
	t.pids.Put(d.pid, d)
}

func (t *table) unregister(pid PID) {
	t.pids.Remove(pid)
}

func (t *table) lookup(pid PID) (*Descriptor, bool) {
	v, ok := t.pids.Get(pid)
	if !ok {
		return nil, false
	}
	return v.(*Descriptor), true
}

// each visits the registered descriptors in ascending pid order.
func (t *table) each(fn func(*Descriptor)) {
	it := t.pids.Iterator()
	for it.Next() {
		fn(it.Value().(*Descriptor))
	}
}

// all visits every slot, dead or alive, in class then slot order.
func (t *table) all(fn func(*Descriptor)) {
	fn(&t.idle)
	for _, c := range []Class{ClassSystem, ClassPeriodic, ClassRoundRobin} {
		slots := t.slots(c)
		for i := range slots {
			fn(&slots[i])
		}
	}
}

// pidCmp implements the Comparator for the pid tree.
func pidCmp(a, b any) int {
	pa, pb := a.(PID), b.(PID)
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}
