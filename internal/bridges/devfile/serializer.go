package devfile

import (
	"fmt"
	"sync"
)

// WriteSerializer runs tasks one at a time in arrival order.
//
// A task receives a done function and must call it once its device write has
// completed or failed; the next task starts only after that. Do never blocks
// the caller, so a notification that arrives while a write is in flight is
// queued and later applied against the state left by its predecessor.
//
// A task that never calls done stalls the queue. This mirrors a stalled device
// and only affects the owning binding.
type WriteSerializer struct {
	mu      sync.Mutex
	idle    *sync.Cond
	queue   []func(done func())
	running bool

	// onPanic is called with the recovered value when a task panics.
	onPanic func(any)
}

// NewWriteSerializer creates an idle serializer.
func NewWriteSerializer() *WriteSerializer {
	s := &WriteSerializer{}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Do enqueues a task.
func (s *WriteSerializer) Do(task func(done func())) {
	s.mu.Lock()
	s.queue = append(s.queue, task)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.drain()
}

// Wait blocks until the queue is empty and no task is running.
func (s *WriteSerializer) Wait() {
	s.mu.Lock()
	for s.running {
		s.idle.Wait()
	}
	s.mu.Unlock()
}

// Pending returns the number of queued tasks, excluding a running one.
func (s *WriteSerializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *WriteSerializer) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.idle.Broadcast()
			s.mu.Unlock()
			return
		}
		task := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		released := make(chan struct{})
		var once sync.Once
		release := func() { once.Do(func() { close(released) }) }

		s.run(task, release)
		<-released
	}
}

// run executes one task, releasing the queue if the task panics.
func (s *WriteSerializer) run(task func(done func()), release func()) {
	defer func() {
		if r := recover(); r != nil {
			release()
			if s.onPanic != nil {
				s.onPanic(fmt.Sprintf("%v", r))
			}
		}
	}()
	task(release)
}
