// Package workqueue runs deferred work on a single ordered worker.
package workqueue

import (
	"sync"

	"gopkg.in/tomb.v2"
)

// Work is a unit of deferred work. A Work that is already waiting in a queue
// is not queued a second time.
type Work struct {
	fn      func()
	pending bool
}

// NewWork wraps a function into a Work.
func NewWork(fn func()) *Work {
	return &Work{fn: fn}
}

// Ordered executes queued work one item at a time, in queueing order.
type Ordered struct {
	name string

	mu        sync.Mutex
	idle      *sync.Cond
	items     []*Work
	running   bool
	destroyed bool
	executed  uint64

	wake chan struct{}
	tomb tomb.Tomb
}

// NewOrdered creates a queue and starts its worker.
func NewOrdered(name string) *Ordered {
	q := &Ordered{
		name: name,
		wake: make(chan struct{}, 1),
	}
	q.idle = sync.NewCond(&q.mu)

	q.tomb.Go(q.loop)

	return q
}

// Name returns the name of the queue.
func (q *Ordered) Name() string {
	return q.name
}

// Queue adds work to the queue. It returns false if the work is already
// pending or the queue has been destroyed. Work that is currently executing
// is not pending and can be queued again.
func (q *Ordered) Queue(w *Work) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed || w.pending {
		return false
	}

	w.pending = true
	q.items = append(q.items, w)

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return true
}

// Executed returns how many work items have completed.
func (q *Ordered) Executed() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.executed
}

// Flush waits until every queued item has finished.
func (q *Ordered) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) > 0 || q.running {
		q.idle.Wait()
	}
}

// Destroy runs the remaining work, stops the worker and rejects further
// work.
func (q *Ordered) Destroy() error {
	q.Flush()

	q.mu.Lock()
	q.destroyed = true
	q.mu.Unlock()

	q.tomb.Kill(nil)

	return q.tomb.Wait()
}

func (q *Ordered) loop() error {
	for {
		select {
		case <-q.tomb.Dying():
			return nil
		case <-q.wake:
		}

		for q.runOne() {
		}
	}
}

func (q *Ordered) runOne() bool {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return false
	}

	w := q.items[0]
	q.items = q.items[1:]
	w.pending = false
	q.running = true
	q.mu.Unlock()

	w.fn()

	q.mu.Lock()
	q.running = false
	q.executed++
	q.idle.Broadcast()
	q.mu.Unlock()

	return true
}
