package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "zero value gets defaults",
			in:   Config{},
			want: DefaultConfig(),
		},
		{
			name: "max tasks clamped to the slot total",
			in:   Config{TickMS: 5, SystemSlots: 1, PeriodicSlots: 2, RoundRobinSlots: 3, MaxTasks: 100},
			want: Config{TickMS: 5, SystemSlots: 1, PeriodicSlots: 2, RoundRobinSlots: 3, MaxTasks: 6},
		},
		{
			name: "smaller max tasks kept",
			in:   Config{TickMS: 1, SystemSlots: 2, PeriodicSlots: 2, RoundRobinSlots: 2, MaxTasks: 3},
			want: Config{TickMS: 1, SystemSlots: 2, PeriodicSlots: 2, RoundRobinSlots: 2, MaxTasks: 3},
		},
		{
			name: "negative counts replaced",
			in:   Config{TickMS: -1, SystemSlots: -4, PeriodicSlots: 1, RoundRobinSlots: 1},
			want: Config{TickMS: 10, SystemSlots: 4, PeriodicSlots: 1, RoundRobinSlots: 1, MaxTasks: 6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Sanitize())
		})
	}
}

func TestNew_SlotLayout(t *testing.T) {
	ass := assert.New(t)
	k := New(Config{SystemSlots: 1, PeriodicSlots: 2, RoundRobinSlots: 3})

	counts := map[Class]int{}
	for _, ti := range k.Tasks() {
		counts[ti.Class]++
		ass.Equal(StateDead, ti.State)
	}
	ass.Equal(map[Class]int{ClassIdle: 1, ClassSystem: 1, ClassPeriodic: 2, ClassRoundRobin: 3}, counts)
}
