// Package sched runs delayed and repeating tasks against a discrete tick counter.
//
// A Scheduler is owned by the world loop goroutine: scheduling and Advance must happen on that
// goroutine, which is what lets tasks mutate station state without locks.
package sched

import (
	"container/heap"
	"fmt"
)

type Task func()

// Scheduler executes tasks when their due tick is reached. Tasks due on the same tick run in the
// order they were scheduled.
type Scheduler struct {
	now   uint64
	seq   uint64
	queue taskQueue

	// OnPanic, if set, receives panics recovered from tasks. A panicking task never stops the
	// remaining tasks of the tick.
	OnPanic func(name string, v any)
}

type entry struct {
	due  uint64
	seq  uint64
	name string
	fn   Task
}

func New(startTick uint64) *Scheduler {
	return &Scheduler{now: startTick}
}

// Now is the tick that the next Advance call will execute.
func (s *Scheduler) Now() uint64 { return s.now }

func (s *Scheduler) Pending() int { return s.queue.Len() }

// After runs fn delay ticks from now. delay=0 runs it on the next Advance.
func (s *Scheduler) After(name string, delay uint64, fn Task) {
	s.seq++
	heap.Push(&s.queue, &entry{due: s.now + delay, seq: s.seq, name: name, fn: fn})
}

// Repeat runs fn count times, the first one immediately (next Advance) and then every interval ticks.
// fn receives the zero-based iteration index.
func (s *Scheduler) Repeat(name string, interval uint64, count int, fn func(i int)) {
	if count <= 0 {
		return
	}
	if interval == 0 {
		interval = 1
	}
	var step func(i int) Task
	step = func(i int) Task {
		return func() {
			if i+1 < count {
				s.After(name, interval, step(i+1))
			}
			fn(i)
		}
	}
	s.After(name, 0, step(0))
}

// Every runs fn after delay ticks and then every interval ticks until the scheduler is dropped.
func (s *Scheduler) Every(name string, delay, interval uint64, fn Task) {
	if interval == 0 {
		interval = 1
	}
	var tick Task
	tick = func() {
		s.After(name, interval, tick)
		fn()
	}
	s.After(name, delay, tick)
}

// Advance runs every task due at the current tick (including tasks scheduled for this tick by
// tasks running in it) and then moves to the next tick. It returns the executed tick.
func (s *Scheduler) Advance() uint64 {
	tick := s.now
	for s.queue.Len() > 0 && s.queue[0].due <= tick {
		e := heap.Pop(&s.queue).(*entry)
		s.run(e)
	}
	s.now++
	return tick
}

func (s *Scheduler) run(e *entry) {
	defer func() {
		if r := recover(); r != nil {
			if s.OnPanic != nil {
				s.OnPanic(e.name, r)
				return
			}
			panic(fmt.Sprintf("sched: task %s: %v", e.name, r))
		}
	}()
	e.fn()
}

type taskQueue []*entry

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *taskQueue) Push(x any)   { *q = append(*q, x.(*entry)) }
func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
