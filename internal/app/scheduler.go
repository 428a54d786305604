package app

import (
	"sort"
	"sync"
	"time"
)

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the callback and reports whether it was still pending.
	Stop() bool
}

// Scheduler runs callbacks after a delay. It drives the one-second countdown
// and the reveal delay of a quiz session.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

// RealScheduler schedules callbacks on the wall clock via time.AfterFunc.
func RealScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler is a deterministic Scheduler for tests and simulations.
// Callbacks only run inside Advance, on the caller's goroutine.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	owner *ManualScheduler
	at    time.Duration
	seq   int
	f     func()
	done  bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	task := &manualTask{owner: m, at: m.now + d, seq: m.seq, f: f}
	m.tasks = append(m.tasks, task)
	return task
}

func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.owner.removeLocked(t)
	return true
}

// Advance moves the virtual clock forward, firing due callbacks in order.
// Callbacks scheduled while advancing fire too if they fall inside the window.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		next.done = true
		m.removeLocked(next)
		m.mu.Unlock()

		next.f()
	}
}

// Elapsed returns the virtual time advanced so far.
func (m *ManualScheduler) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of callbacks still waiting to fire.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *ManualScheduler) nextDueLocked(target time.Duration) *manualTask {
	if len(m.tasks) == 0 {
		return nil
	}
	sort.Slice(m.tasks, func(i, j int) bool {
		if m.tasks[i].at != m.tasks[j].at {
			return m.tasks[i].at < m.tasks[j].at
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	if m.tasks[0].at > target {
		return nil
	}
	return m.tasks[0]
}

func (m *ManualScheduler) removeLocked(t *manualTask) {
	for i, task := range m.tasks {
		if task == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}
