// Package eventloop runs tasks one at a time on a single goroutine.
//
// Everything a widget owns (catalog store, pull state machine, view calls)
// is only touched from loop tasks, so none of it needs locking. Background
// work such as backend requests and timers hands its result back with Post.
package eventloop

import (
	"context"
	"sync"
)

// Loop is a FIFO task queue. Post may be called from any goroutine and
// never blocks; tasks run on whichever goroutine calls Run or Drain.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// New creates an empty loop
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post schedules fn on a later turn of the loop. It reports false when the
// loop has been closed and fn was dropped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run executes tasks until ctx is done. The loop is closed on return and
// further posts are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Drain runs queued tasks, including ones they post, until the queue is
// empty. It returns how many tasks ran.
func (l *Loop) Drain() int {
	ran := 0
	for {
		fn, ok := l.next()
		if !ok {
			return ran
		}
		fn()
		ran++
	}
}

// Pending returns the number of queued tasks
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.queue = nil
}
