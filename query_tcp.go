package dnssim

// tcpQuery is one request's attempt over a pooled TCP connection. Unlike
// udpQuery it has a real state machine (queryState) because its payload
// must survive a connect handshake, queueing behind other pipelined
// queries, and an asynchronous write before it can be considered sent.
// Grounded on internal.h's _output_dnssim_query_tcp_t and tcp.c's
// _create_query_tcp / _close_query_tcp.
type tcpQuery struct {
	req   *request
	reqN  *node[query]
	listN *node[*tcpQuery]

	// conn is set once this query is hard-assigned to a connection
	// (flushPending); nil while it's merely sitting on client.pending.
	conn *connection

	state queryState
}

// newTCPQuery links the query into its request and queues it on the
// client, then asks the client to dispatch — which either writes it
// immediately (an ACTIVE connection already exists), waits (one is still
// CONNECTING), or opens a new connection. Grounded on _create_query_tcp.
func newTCPQuery(req *request) *tcpQuery {
	q := &tcpQuery{req: req, state: queryPendingWrite}
	q.reqN = newNode[query](query(q))
	q.listN = newNode[*tcpQuery](q)

	req.queries.pushBack(q.reqN)
	req.client.pending.pushBack(q.listN)
	req.client.dispatch()
	return q
}

func (q *tcpQuery) reqNode() *node[query] { return q.reqN }

// closeQuery tears down whatever list membership the query currently holds.
// A write in flight (PENDING_WRITE_CB) can't be safely unlinked until its
// callback lands, so it's marked PENDING_CLOSE instead and onWriteResult
// finishes the job; every other state can be unlinked immediately. Grounded
// on _close_query_tcp.
func (q *tcpQuery) closeQuery() {
	switch q.state {
	case queryPendingWriteCB:
		q.state = queryPendingClose
	case querySent:
		if q.conn != nil {
			q.conn.sent.tryRemove(q.listN)
		}
		q.state = queryPendingClose
	default:
		if q.conn != nil {
			q.conn.queued.tryRemove(q.listN)
		}
		q.req.client.pending.tryRemove(q.listN)
		q.state = queryPendingClose
	}
}
