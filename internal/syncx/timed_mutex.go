// Package syncx holds the bounded-wait lock used by the connection core.
package syncx

import (
	"sync"
	"time"
)

// TimedMutex is a binary lock whose Acquire gives up after a bounded wait.
//
// A timed-out Acquire does not fail the caller: it reports ok=false and the
// caller proceeds without holding the lock. This trades mutual exclusion for
// liveness. Two callers may then run the guarded section at the same time,
// so state that must never be accessed concurrently (maps, fields read by
// other goroutines) stays behind a regular sync.Mutex as well.
//
// The zero value is ready to use.
type TimedMutex struct {
	once sync.Once
	slot chan struct{}
}

func (m *TimedMutex) init() {
	m.once.Do(func() {
		m.slot = make(chan struct{}, 1)
	})
}

// Acquire waits up to timeout for the lock. A non-positive timeout waits
// forever. The returned release func is safe to call more than once and is
// a no-op when the lock was not obtained.
func (m *TimedMutex) Acquire(timeout time.Duration) (release func(), ok bool) {
	m.init()

	if timeout <= 0 {
		m.slot <- struct{}{}
		return m.releaser(), true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m.slot <- struct{}{}:
		return m.releaser(), true
	case <-timer.C:
		return func() {}, false
	}
}

// TryAcquire takes the lock only if it is free.
func (m *TimedMutex) TryAcquire() (release func(), ok bool) {
	m.init()

	select {
	case m.slot <- struct{}{}:
		return m.releaser(), true
	default:
		return func() {}, false
	}
}

func (m *TimedMutex) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.slot
		})
	}
}
