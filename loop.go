package dnssim

import (
	"sync/atomic"
	"time"
)

// loopEvent is a unit of work posted onto the event loop. Every socket
// reader/writer goroutine and every timer communicates with the domain
// state (clients, connections, requests) exclusively by posting a loopEvent
// — nothing outside the loop goroutine is ever allowed to touch that state
// directly (spec.md §5: "No mutex is required on client/connection/request
// state; ordering is established by the loop's event order").
type loopEvent func()

// eventLoop is the Go-native realization of spec.md's single-threaded
// cooperative reactor (component C1): instead of a callback-queue owned by
// a C event-loop library, a single loop goroutine drains a channel of
// events, each of which runs to completion before the next is started. This
// is the same "single logical thread of control" guarantee, built from
// Go's native channel/goroutine idiom rather than libuv callback pointers
// (see SPEC_FULL.md REDESIGN FLAGS R1).
type eventLoop struct {
	events  chan loopEvent
	handles int64 // atomic: count of outstanding timers + sockets
}

func newEventLoop() *eventLoop {
	return &eventLoop{events: make(chan loopEvent, 4096)}
}

// post enqueues fn to run on the loop goroutine. Safe to call from any
// goroutine, including the loop goroutine itself.
func (l *eventLoop) post(fn loopEvent) {
	l.events <- fn
}

// runNowait advances the loop by one non-blocking step: every event already
// queued is run to completion, in order, on the calling goroutine. It
// returns the number of handles (timers, sockets) still outstanding, as
// uv_run(UV_RUN_NOWAIT) does — zero means the engine is fully quiesced.
func (l *eventLoop) runNowait() int {
	for {
		select {
		case fn := <-l.events:
			fn()
		default:
			return int(atomic.LoadInt64(&l.handles))
		}
	}
}

func (l *eventLoop) addHandle() {
	atomic.AddInt64(&l.handles, 1)
}

func (l *eventLoop) removeHandle() {
	atomic.AddInt64(&l.handles, -1)
}

// msDuration converts a millisecond count, as every timeout in this package
// is configured, into a time.Duration.
func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// loopTimer is a single-shot timer whose callback is delivered as a
// loopEvent, so it only ever runs on the loop goroutine. It corresponds to
// a uv_timer_t in the original source: every long-lived domain object
// (request, connection) owns exactly one.
type loopTimer struct {
	loop    *eventLoop
	timer   *time.Timer
	stopped bool
}

// startTimer arms a timer that posts cb to the loop after d. Counts as one
// outstanding handle until stop is called.
func (l *eventLoop) startTimer(d time.Duration, cb func()) *loopTimer {
	l.addHandle()
	lt := &loopTimer{loop: l}
	lt.timer = time.AfterFunc(d, func() {
		l.post(cb)
	})
	return lt
}

// stop cancels the timer. Idempotent. Mirrors "stop timer -> close timer"
// from spec.md §5's teardown order; since Go timers need no separate close
// step, stop also releases the handle.
func (lt *loopTimer) stop() {
	if lt == nil || lt.stopped {
		return
	}
	lt.stopped = true
	lt.timer.Stop()
	lt.loop.removeHandle()
}
