package dnssim

// queryState is the TCP query state machine of spec.md §3 ("Query"):
//
//	PENDING_WRITE -> PENDING_WRITE_CB -> SENT -> (closed)
//	                                   \
//	                                    -> PENDING_CLOSE -> (closed on write-cb)
//	any state -> WRITE_FAILED on transport error
//	QUEUED/SENT -> ORPHANED if the owning connection is torn down first,
//	               then straight back to PENDING_WRITE on the client's
//	               pending list once requeued (never a dead end)
//
// UDP queries don't have a state machine (spec.md §4.2: one-shot send, no
// retransmit): udpQuery carries no queryState at all.
type queryState int

const (
	queryPendingWrite queryState = iota
	queryPendingWriteCB
	queryPendingClose
	queryWriteFailed
	querySent
	// queryOrphaned is never actually stored: closeConnection requeues a
	// sent/queued query straight to PENDING_WRITE, so this value exists to
	// name the waypoint spec.md describes, not to be assigned.
	queryOrphaned
)

// query is implemented by udpQuery and tcpQuery: one per transport attempt
// bound to a request (spec.md §3 "Query"). A request may in principle spawn
// more than one (future retransmission); today it spawns exactly one.
type query interface {
	// reqNode returns the node linking this query into its owning
	// request's query list.
	reqNode() *node[query]
	// closeQuery tears down the transport-specific resources (socket or
	// connection membership) for this query. Idempotent.
	closeQuery()
}
