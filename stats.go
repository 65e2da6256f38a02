package dnssim

import (
	"sync"

	"github.com/miekg/dns"
)

// rcodeBucket indexes Stats.Rcode, the rcode histogram. The 19 IANA-registered rcodes
// spec.md §3 enumerates, plus "other" for anything unrecognized.
type rcodeBucket int

const (
	rcodeNoError rcodeBucket = iota
	rcodeFormErr
	rcodeServFail
	rcodeNXDomain
	rcodeNotImp
	rcodeRefused
	rcodeYXDomain
	rcodeYXRRSet
	rcodeNXRRSet
	rcodeNotAuth
	rcodeNotZone
	rcodeBadVers
	rcodeBadKey
	rcodeBadTime
	rcodeBadMode
	rcodeBadName
	rcodeBadAlg
	rcodeBadTrunc
	rcodeBadCookie
	rcodeOther
	rcodeBucketCount
)

var rcodeBucketNames = [rcodeBucketCount]string{
	rcodeNoError:   "noerror",
	rcodeFormErr:   "formerr",
	rcodeServFail:  "servfail",
	rcodeNXDomain:  "nxdomain",
	rcodeNotImp:    "notimp",
	rcodeRefused:   "refused",
	rcodeYXDomain:  "yxdomain",
	rcodeYXRRSet:   "yxrrset",
	rcodeNXRRSet:   "nxrrset",
	rcodeNotAuth:   "notauth",
	rcodeNotZone:   "notzone",
	rcodeBadVers:   "badvers",
	rcodeBadKey:    "badkey",
	rcodeBadTime:   "badtime",
	rcodeBadMode:   "badmode",
	rcodeBadName:   "badname",
	rcodeBadAlg:    "badalg",
	rcodeBadTrunc:  "badtrunc",
	rcodeBadCookie: "badcookie",
	rcodeOther:     "other",
}

// rcodeToBucket maps a wire rcode (spec.md §4.4 "increment the rcode bucket
// matching parsed.rcode; unknown codes go to other") to its histogram slot.
func rcodeToBucket(rcode int) rcodeBucket {
	switch rcode {
	case dns.RcodeSuccess:
		return rcodeNoError
	case dns.RcodeFormatError:
		return rcodeFormErr
	case dns.RcodeServerFailure:
		return rcodeServFail
	case dns.RcodeNameError:
		return rcodeNXDomain
	case dns.RcodeNotImplemented:
		return rcodeNotImp
	case dns.RcodeRefused:
		return rcodeRefused
	case dns.RcodeYXDomain:
		return rcodeYXDomain
	case dns.RcodeYXRrset:
		return rcodeYXRRSet
	case dns.RcodeNXRrset:
		return rcodeNXRRSet
	case dns.RcodeNotAuth:
		return rcodeNotAuth
	case dns.RcodeNotZone:
		return rcodeNotZone
	case dns.RcodeBadVers:
		return rcodeBadVers
	case dns.RcodeBadKey:
		return rcodeBadKey
	case dns.RcodeBadTime:
		return rcodeBadTime
	case dns.RcodeBadMode:
		return rcodeBadMode
	case dns.RcodeBadName:
		return rcodeBadName
	case dns.RcodeBadAlg:
		return rcodeBadAlg
	case dns.RcodeBadTrunc:
		return rcodeBadTrunc
	case dns.RcodeBadCookie:
		return rcodeBadCookie
	default:
		return rcodeOther
	}
}

// Stats is a single counter set, one of the two windows ("current" and
// "sum") the engine always keeps (spec.md §3/§4.6). The latency histogram is
// indexed by integer milliseconds in [0, timeoutMs]; a timed-out request
// always lands exactly at index timeoutMs.
type Stats struct {
	Requests int64
	Ongoing  int64
	Answers  int64

	Rcode [rcodeBucketCount]int64

	// Latency is indexed by round-trip milliseconds, sized to hold
	// [0, timeoutMs] inclusive.
	Latency []int64
}

// statsWindow is the engine's live, mutable counter set — "current" or
// "sum". Every other piece of domain state (client/connection/request) is
// mutated exclusively by the loop goroutine and needs no lock, but Stats is
// deliberately the one exception: the admin HTTP server's /metrics and
// /stats handlers read a snapshot from their own goroutine, concurrently
// with the loop goroutine recording answers and timeouts, so the counters
// themselves are guarded by a mutex rather than routed through the loop.
type statsWindow struct {
	mu sync.Mutex
	Stats
}

// newStatsWindow allocates a statsWindow sized for the given timeout.
func newStatsWindow(timeoutMs int) *statsWindow {
	return &statsWindow{Stats: Stats{Latency: make([]int64, timeoutMs+1)}}
}

func (w *statsWindow) recordRequest() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Requests++
	w.Ongoing++
}

// recordAnswer accounts a matched response. It does not touch Ongoing —
// that is decremented exactly once, by closeRequest, regardless of whether
// the request ends in an answer or a timeout (spec.md §4.4).
func (w *statsWindow) recordAnswer(rcode int, latencyMs int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Answers++
	w.Rcode[rcodeToBucket(rcode)]++
	w.recordLatencyLocked(latencyMs)
}

// recordTimeout accounts a request that ran out its full timeout without an
// answer. Only the latency histogram's top bucket moves; Answers does not.
func (w *statsWindow) recordTimeout(latencyMs int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recordLatencyLocked(latencyMs)
}

func (w *statsWindow) decrementOngoing() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Ongoing--
}

// recordLatencyLocked assumes w.mu is already held.
func (w *statsWindow) recordLatencyLocked(ms int64) {
	if ms < 0 {
		ms = 0
	}
	if int(ms) >= len(w.Latency) {
		ms = int64(len(w.Latency) - 1)
	}
	w.Latency[ms]++
}

// snapshot returns a copy safe to hand out as a read-only structure (spec.md
// §6 "Observability is via the two stats snapshots exposed as read-only
// structures"). Safe to call from any goroutine.
func (w *statsWindow) snapshot() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := w.Stats
	cp.Latency = append([]int64(nil), w.Latency...)
	return cp
}

// reset zeroes current's counters on rollover, keeping Ongoing (requests
// still in flight survive a window rotation).
func (w *statsWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	ongoing := w.Ongoing
	w.Stats = Stats{Latency: make([]int64, len(w.Latency))}
	w.Ongoing = ongoing
}
