package dnssim

import (
	"net"
	"time"
)

// Engine is the simulator itself: a fixed-size client table, a single event
// loop goroutine's worth of domain state, and the two stats windows every
// request updates. It is grounded on internal.h's _output_dnssim_t, with
// the uv_loop_t replaced by eventLoop (SPEC_FULL.md REDESIGN FLAG R1).
//
// The configuration methods (SetTransport, SetTarget, AddSource,
// SetTimeoutMs, SetIdleTimeoutMs) must be called before the first Receive;
// Receive, RunNowait, RotateStats, Dropped and Free must all be called from
// the one goroutine that drives the engine — Engine has no internal locking, by
// design: all domain mutation happens on the loop goroutine, and
// configuration happens before that goroutine's caller starts feeding it
// traffic (spec.md §5). The two stats windows are the one deliberate
// exception: statsCurrent/statsSum are *statsWindow, which guard their
// counters with a mutex so the admin HTTP server's goroutine can read a
// snapshot concurrently with the loop goroutine recording answers.
type Engine struct {
	loop    *eventLoop
	clients *clientTable

	maxClients int
	transport  Transport

	timeoutMs     int
	idleTimeoutMs int

	statsCurrent *statsWindow
	statsSum     *statsWindow

	dropped int64

	clock func() time.Time

	targetUDP  *net.UDPAddr
	targetTCP  *net.TCPAddr
	targetIsV6 bool
	sources    []net.IP
	sourceIdx  int64
}

// New creates an Engine with a client table sized for maxClients distinct
// source IPs, UDP transport, a 2s request timeout and a 15s connection idle
// timeout (dnssim.c/tcp.c's hardcoded defaults, exposed here as
// overridable via SetTimeoutMs / SetIdleTimeoutMs).
func New(maxClients int) *Engine {
	e := &Engine{
		maxClients:    maxClients,
		transport:     TransportUDP,
		timeoutMs:     2000,
		idleTimeoutMs: 15000,
		clock:         time.Now,
	}
	e.loop = newEventLoop()
	e.clients = newClientTable(e, maxClients)
	e.statsCurrent = newStatsWindow(e.timeoutMs)
	e.statsSum = newStatsWindow(e.timeoutMs)
	return e
}

// nowMs is the engine's clock, seamed through e.clock so tests can run it
// against a fake clock instead of wall time.
func (e *Engine) nowMs() int64 {
	return e.clock().UnixNano() / int64(time.Millisecond)
}

// SetTransport chooses how requests are dispatched. Grounded on
// output_dnssim_set_transport, which rejected everything but UDP_ONLY;
// TCP is this package's supplemented addition.
func (e *Engine) SetTransport(t Transport) error {
	switch t {
	case TransportUDP, TransportTCP:
		e.transport = t
		return nil
	default:
		return ErrUnsupportedTransport
	}
}

// SetTimeoutMs sets how long a request waits for an answer before it's
// counted as timed out. It also resizes both stats windows' latency
// histograms, so it must be called before any traffic is fed in.
func (e *Engine) SetTimeoutMs(ms int) {
	e.timeoutMs = ms
	e.statsCurrent = newStatsWindow(ms)
	e.statsSum = newStatsWindow(ms)
}

// SetIdleTimeoutMs overrides the 15s default a pooled TCP connection is
// allowed to sit idle (connecting or otherwise unused) before it's closed.
func (e *Engine) SetIdleTimeoutMs(ms int) {
	e.idleTimeoutMs = ms
}

// RunNowait drains every event currently queued on the loop — every fired
// timer and every completed socket read/write that arrived since the last
// call — without blocking for more, and returns the number of handles
// (timers, sockets) still outstanding. Grounded on
// output_dnssim_run_nowait's uv_run(UV_RUN_NOWAIT) wrapper.
func (e *Engine) RunNowait() int {
	return e.loop.runNowait()
}

// StatsSum returns a snapshot of the cumulative stats window. Safe to call
// from any goroutine, including concurrently with RunNowait (spec.md §6).
func (e *Engine) StatsSum() Stats {
	return e.statsSum.snapshot()
}

// StatsCurrent returns a snapshot of the current interval's stats window.
// Safe to call from any goroutine, including concurrently with RunNowait.
func (e *Engine) StatsCurrent() Stats {
	return e.statsCurrent.snapshot()
}

// RotateStats snapshots the current window, then resets its counters in
// place (Ongoing survives the rollover — requests already in flight don't
// vanish from the count just because a new interval started). Grounded on
// dnssim.c's periodic stats_timer, driven here explicitly by the caller
// instead of a wall-clock timer internal to the engine, since RunNowait is
// itself pull-based.
func (e *Engine) RotateStats() Stats {
	snap := e.statsCurrent.snapshot()
	e.statsCurrent.reset()
	return snap
}

// Dropped returns the number of ingest objects Receive has discarded —
// missing payload, missing IP layer, out-of-range client id or an
// unparseable DNS header (spec.md §4.1 step 4, §7).
func (e *Engine) Dropped() int64 {
	return e.dropped
}

// Free tears down every pooled TCP connection still open across every
// client. Grounded on output_dnssim_free's "close the loop and release the
// client table" — Go has no manual allocation to release, so what remains
// of "free" is closing the handles a GC can't reclaim on its own. UDP has
// no comparable persistent handle to close: each query's socket already
// releases itself (see sendUDP). Idempotent; safe to call even if the
// engine never sent a single request.
func (e *Engine) Free() {
	for _, cl := range e.clients.slots {
		cl.conns.drain(func(n *node[*connection]) {
			n.val.closeConnection()
		})
	}
}
