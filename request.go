package dnssim

// requestState mirrors the original's ONGOING/CLOSING pair (spec.md §3
// Request): a request is ONGOING from creation until it is answered or
// times out, then moves to CLOSING while its queries and timer unwind.
type requestState int

const (
	requestOngoing requestState = iota
	requestClosing
)

// request is one simulated query round-trip: the payload handed to Receive,
// the client it was attributed to, and the bookkeeping needed to measure
// its latency and report its outcome (spec.md §3 Request, §4.4). It is
// grounded on dnssim/common.c's _output_dnssim_request_t and the
// _request_answered/_close_request/_close_request_timeout functions that
// operate on it.
type request struct {
	engine *Engine
	client *client

	payload []byte
	dnsID   uint16

	createdAt int64 // ms, engine clock
	endedAt   int64
	timeoutMs int

	state requestState
	timer *loopTimer

	// stats is the window that was "current" at creation time. Because
	// statsWindow.reset rotates a window's counters in place rather than
	// replacing the struct, this pointer stays valid across rollovers.
	stats *statsWindow

	queries linkedList[query]
}

// newRequest creates a request in the ONGOING state, records it against
// both stats windows, and arms its timeout timer. Grounded on dnssim.c's
// _receive, which is where a request is born once a client id has been
// resolved.
func newRequest(engine *Engine, cl *client, payload []byte, dnsID uint16) *request {
	now := engine.nowMs()
	r := &request{
		engine:    engine,
		client:    cl,
		payload:   payload,
		dnsID:     dnsID,
		createdAt: now,
		timeoutMs: engine.timeoutMs,
		state:     requestOngoing,
		stats:     engine.statsCurrent,
	}
	r.stats.recordRequest()
	engine.statsSum.recordRequest()
	r.timer = engine.loop.startTimer(msDuration(r.timeoutMs), func() {
		r.onTimeout()
	})
	return r
}

// answered records a matched response and closes the request. Grounded on
// common.c's _request_answered: ended_at is clamped into
// [created_at, created_at+timeout_ms] so a response racing the timeout
// callback never reports a latency above the configured ceiling.
func (r *request) answered(hdr dnsHeader) {
	if r.state != requestOngoing {
		return
	}
	ended := r.engine.nowMs()
	if ended < r.createdAt {
		ended = r.createdAt
	}
	if max := r.createdAt + int64(r.timeoutMs); ended > max {
		ended = max
	}
	r.endedAt = ended
	latency := r.endedAt - r.createdAt

	r.stats.recordAnswer(hdr.Rcode, latency)
	r.engine.statsSum.recordAnswer(hdr.Rcode, latency)

	r.closeRequest()
}

// onTimeout fires when no answer arrived within timeoutMs. Grounded on
// common.c's _close_request_timeout_cb: latency is recorded as exactly
// timeoutMs, no rcode bucket moves, and the request closes.
func (r *request) onTimeout() {
	if r.state != requestOngoing {
		return
	}
	r.endedAt = r.createdAt + int64(r.timeoutMs)
	latency := int64(r.timeoutMs)

	r.stats.recordTimeout(latency)
	r.engine.statsSum.recordTimeout(latency)

	// The timer already fired; stop() still clears engine's handle count
	// and marks it so a stray close elsewhere is a no-op.
	r.timer.stop()
	r.timer = nil

	r.closeRequest()
}

// closeRequest is idempotent: it decrements Ongoing exactly once (on the
// ONGOING->CLOSING transition), stops the timer if it hasn't already fired,
// and closes every child query. Grounded on common.c's _close_request.
func (r *request) closeRequest() {
	if r.state != requestOngoing {
		return
	}
	r.state = requestClosing

	r.stats.decrementOngoing()
	r.engine.statsSum.decrementOngoing()

	if r.timer != nil {
		r.timer.stop()
		r.timer = nil
	}

	r.queries.drain(func(n *node[query]) {
		n.val.closeQuery()
	})
}
