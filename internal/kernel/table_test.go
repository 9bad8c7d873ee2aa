package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_FirstFitAndIndex(t *testing.T) {
	ass := assert.New(t)
	tb := newTable(Config{SystemSlots: 1, PeriodicSlots: 1, RoundRobinSlots: 3})

	for i, pid := range []PID{7, 3, 5} {
		d, ok := tb.freeSlot(ClassRoundRobin)
		ass.True(ok)
		ass.Equal(i, d.slot)
		d.pid = pid
		d.state = StateReady
		tb.register(d)
	}
	_, ok := tb.freeSlot(ClassRoundRobin)
	ass.False(ok)

	var order []PID
	tb.each(func(d *Descriptor) { order = append(order, d.pid) })
	ass.Equal([]PID{3, 5, 7}, order)

	// free the middle slot; the next search lands on it
	tb.roundRobin[1].state = StateDead
	tb.unregister(3)
	d, ok := tb.freeSlot(ClassRoundRobin)
	ass.True(ok)
	ass.Equal(1, d.slot)

	_, ok = tb.lookup(3)
	ass.False(ok)
	d, ok = tb.lookup(5)
	ass.True(ok)
	ass.Equal(2, d.slot)

	ass.Nil(tb.slots(ClassIdle))
}

func TestNextPIDSkipsLiveIDs(t *testing.T) {
	ass := assert.New(t)
	k := New(DefaultConfig())

	pid, err := k.CreateRoundRobin(func() {}, 0)
	ass.NoError(err)
	ass.Equal(PID(1), pid)

	// wrap the counter onto the live id
	k.lastPID = 0xFFFF
	ass.Equal(PID(2), k.nextPID())
}
