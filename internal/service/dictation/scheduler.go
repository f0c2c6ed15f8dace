package dictation

// Scheduler defers work to the next tick of the event loop. Defer is called
// while the synchronizer holds its lock, so fn must not run inline.
type Scheduler interface {
	Defer(fn func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(fn func())

func (f SchedulerFunc) Defer(fn func()) { f(fn) }

const tickQueueSize = 64

// tickQueue is drained by Synchronizer.Run after the current event is handled.
type tickQueue struct {
	ch chan func()
}

func newTickQueue() *tickQueue {
	return &tickQueue{ch: make(chan func(), tickQueueSize)}
}

// Defer never blocks. When the loop is not draining the queue, the oldest
// pending tick is discarded; only the latest caret move matters.
func (q *tickQueue) Defer(fn func()) {
	for {
		select {
		case q.ch <- fn:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}
