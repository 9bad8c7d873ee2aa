package kernel

import (
	"runtime"
	"sync"
)

// Snapshot is a saved, resumable execution context. Only the Switcher that
// produced it can interpret it.
type Snapshot interface {
	resumable()
}

// Switcher is the context-switch primitive pair.
//
// Resume is the top half: it restores a snapshot and returns once that task
// re-enters the kernel, handing back the updated snapshot. Enter is the bottom
// half and is called from the task side; it blocks until the kernel resumes the
// same snapshot again.
type Switcher interface {
	// Prepare builds an initial context. Resuming it the first time calls
	// entry; if entry returns, fallback runs (the termination path).
	Prepare(entry, fallback func()) Snapshot
	Resume(s Snapshot) Snapshot
	Enter(s Snapshot)
	// Discard releases a context that will never be resumed again.
	Discard(s Snapshot)
	// Close releases every context and waits for them to unwind.
	Close()
}

// fiber is a task context backed by a parked goroutine.
type fiber struct {
	entry    func()
	fallback func()
	started  bool
	killed   bool
	resume   chan struct{}
	kill     chan struct{}
	done     chan struct{}
}

func (*fiber) resumable() {}

// FiberSwitcher runs every task on its own goroutine and passes a single
// execution token between the kernel and the tasks, so at most one of them
// executes at any time.
type FiberSwitcher struct {
	kernel chan struct{}
	quit   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewFiberSwitcher returns the goroutine-backed switcher.
func NewFiberSwitcher() *FiberSwitcher {
	return &FiberSwitcher{
		kernel: make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

func (s *FiberSwitcher) Prepare(entry, fallback func()) Snapshot {
	return &fiber{
		entry:    entry,
		fallback: fallback,
		resume:   make(chan struct{}),
		kill:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *FiberSwitcher) Resume(snap Snapshot) Snapshot {
	f := snap.(*fiber)
	if !f.started {
		f.started = true
		s.wg.Add(1)
		go s.run(f)
	} else {
		select {
		case f.resume <- struct{}{}:
		case <-f.done:
			return f
		}
	}

	select {
	case <-s.kernel:
	case <-f.done:
	}
	return f
}

func (s *FiberSwitcher) run(f *fiber) {
	defer s.wg.Done()
	defer close(f.done)

	f.entry()
	f.fallback()
}

func (s *FiberSwitcher) Enter(snap Snapshot) {
	f := snap.(*fiber)
	select {
	case s.kernel <- struct{}{}:
	case <-f.kill:
		runtime.Goexit()
	case <-s.quit:
		runtime.Goexit()
	}

	select {
	case <-f.resume:
	case <-f.kill:
		runtime.Goexit()
	case <-s.quit:
		runtime.Goexit()
	}
}

func (s *FiberSwitcher) Discard(snap Snapshot) {
	f, ok := snap.(*fiber)
	if !ok || f.killed {
		return
	}
	f.killed = true
	close(f.kill)
	if f.started {
		// the goroutine unwinds before the slot can be reused
		<-f.done
	}
}

func (s *FiberSwitcher) Close() {
	s.once.Do(func() { close(s.quit) })
	s.wg.Wait()
}
