// Package job holds reusable task bodies built on the kernel API.
package job

import (
	"fsrtos/internal/kernel"
)

// BusyWork returns an entry that burns the given number of ticks and returns,
// which terminates the task.
func BusyWork(k *kernel.Kernel, ticks kernel.Tick) kernel.Entry {
	return func() {
		k.Busy(ticks)
	}
}

// Worker returns a round-robin body that yields rounds times and reports its
// own pid after every yield.
func Worker(k *kernel.Kernel, rounds int, report func(kernel.PID)) kernel.Entry {
	return func() {
		for i := 0; i < rounds; i++ {
			k.Yield()
			if report != nil {
				report(k.Self())
			}
		}
	}
}

// Sampler returns a periodic body: each release it burns cost ticks, hands
// read() to sink and yields until the next release. periods <= 0 runs forever.
func Sampler(k *kernel.Kernel, periods int, cost kernel.Tick, read func() int, sink func(int)) kernel.Entry {
	return func() {
		for i := 0; periods <= 0 || i < periods; i++ {
			k.Busy(cost)
			if read != nil && sink != nil {
				sink(read())
			}
			k.Yield()
		}
	}
}
