package dnssim

import (
	"encoding/binary"
	"net"
)

// connState is the TCP connection lifecycle of spec.md §3 ("Connection"),
// grounded on internal.h's _output_dnssim_connection_state_t.
type connState int

const (
	connInitialized connState = iota
	connConnecting
	connActive
	connClosing
	connClosed
)

// readState tracks where in the RFC 1035 §4.2.2 length-prefixed stream this
// connection currently is, grounded on internal.h's read_state
// (CLEAN/DNSLEN/DNSMSG).
type readState int

const (
	readDNSLen readState = iota
	readDNSMsg
)

// connection is one pooled TCP socket to the target, owned by exactly one
// client. It is grounded on tcp.c in full: _connect_tcp_handle,
// _on_tcp_handle_connected, _on_tcp_read / _read_tcp_stream /
// _parse_recv_data, _write_tcp_query / _write_tcp_query_cb, and
// _close_connection.
type connection struct {
	engine *Engine
	client *client
	node   *node[*connection]

	state     connState
	readState readState

	queued linkedList[*tcpQuery]
	sent   linkedList[*tcpQuery]

	conn net.Conn

	// idleTimer is refreshed on every completed write and every received
	// message that answers a sent query, and also covers the connect
	// handshake itself — a single 15s-default
	// timer for both purposes, same as tcp.c's one _refresh_tcp_connection_timeout.
	idleTimer *loopTimer

	recvBuf []byte
	recvLen int
}

func newConnection(cl *client) *connection {
	c := &connection{engine: cl.engine, client: cl, state: connInitialized, readState: readDNSLen}
	c.node = newNode[*connection](c)
	cl.conns.pushBack(c.node)
	return c
}

// connect dials the target asynchronously and posts the result back onto
// the loop. Grounded on _connect_tcp_handle (uv_tcp_init, bind, TCP_NODELAY,
// uv_tcp_connect).
func (c *connection) connect() {
	c.state = connConnecting
	c.refreshTimeout()
	engine := c.engine
	go func() {
		conn, err := engine.dialTCP()
		engine.loop.post(func() {
			c.onConnectResult(conn, err)
		})
	}()
}

func (c *connection) onConnectResult(conn net.Conn, err error) {
	if c.state == connClosing || c.state == connClosed {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.closeConnection()
		return
	}
	c.conn = conn
	c.state = connActive
	c.readState = readDNSLen
	c.refreshTimeout()
	c.startReadLoop()
	c.flushPending()
}

// flushPending moves every query waiting on this client onto this
// connection and writes it. Grounded on _send_pending_queries.
func (c *connection) flushPending() {
	c.client.pending.drain(func(n *node[*tcpQuery]) {
		q := n.val
		q.conn = c
		c.queued.pushBack(n)
		c.writeQuery(q)
	})
}

// writeQuery frames the query's payload with a 2-byte big-endian length
// prefix (RFC 1035 §4.2.2) and issues the write on a dedicated goroutine, as
// the only blocking I/O the loop goroutine itself never performs. Grounded
// on _write_tcp_query.
func (c *connection) writeQuery(q *tcpQuery) {
	frame := make([]byte, 2+len(q.req.payload))
	binary.BigEndian.PutUint16(frame, uint16(len(q.req.payload)))
	copy(frame[2:], q.req.payload)

	q.state = queryPendingWriteCB
	conn := c.conn
	go func() {
		_, err := conn.Write(frame)
		c.engine.loop.post(func() {
			c.onWriteResult(q, err)
		})
	}()
}

// onWriteResult lands the result of a write issued by writeQuery. Grounded
// on _write_tcp_query_cb: a query closed while its write was in flight is
// dropped here instead of being moved to sent; a failed write tears down
// the whole connection, which requeues every other queued/sent query onto
// the client's pending list (closeConnection).
func (c *connection) onWriteResult(q *tcpQuery, err error) {
	if q.state == queryPendingClose {
		c.queued.tryRemove(q.listN)
		c.sent.tryRemove(q.listN)
		return
	}
	if err != nil {
		q.state = queryWriteFailed
		c.queued.tryRemove(q.listN)
		c.closeConnection()
		return
	}
	q.state = querySent
	c.queued.tryRemove(q.listN)
	c.sent.pushBack(q.listN)
	c.refreshTimeout()
}

func (c *connection) startReadLoop() {
	conn := c.conn
	go func() {
		buf := make([]byte, 65535)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				data := append([]byte(nil), buf[:n]...)
				c.engine.loop.post(func() {
					c.onRead(data)
				})
			}
			if err != nil {
				c.engine.loop.post(func() {
					c.onReadError(err)
				})
				return
			}
		}
	}()
}

// onRead appends newly-read bytes and drains as many complete length-prefix
// frames as are available, same loop structure as _parse_recv_data /
// _read_tcp_stream.
func (c *connection) onRead(data []byte) {
	if c.state != connActive {
		return
	}
	c.recvBuf = append(c.recvBuf, data...)
	for {
		switch c.readState {
		case readDNSLen:
			if len(c.recvBuf) < 2 {
				return
			}
			c.recvLen = int(binary.BigEndian.Uint16(c.recvBuf[:2]))
			c.recvBuf = c.recvBuf[2:]
			c.readState = readDNSMsg
		case readDNSMsg:
			if len(c.recvBuf) < c.recvLen {
				return
			}
			msg := c.recvBuf[:c.recvLen]
			c.recvBuf = c.recvBuf[c.recvLen:]
			c.readState = readDNSLen
			c.deliverMessage(msg)
		}
	}
}

// deliverMessage correlates one complete DNS message to its query by
// scanning this connection's sent list for a matching DNS id, exactly as
// _process_tcp_dnsmsg does, and answers its request.
func (c *connection) deliverMessage(msg []byte) {
	hdr, err := parseDNSHeader(msg)
	if err != nil {
		return
	}
	var match *node[*tcpQuery]
	c.sent.forEach(func(n *node[*tcpQuery]) bool {
		if n.val.req.dnsID == hdr.ID {
			match = n
			return false
		}
		return true
	})
	if match == nil {
		return
	}
	req := match.val.req
	c.sent.remove(match)
	c.refreshTimeout()
	req.answered(hdr)
}

func (c *connection) onReadError(err error) {
	c.closeConnection()
}

func (c *connection) refreshTimeout() {
	if c.idleTimer != nil {
		c.idleTimer.stop()
	}
	c.idleTimer = c.engine.loop.startTimer(msDuration(c.engine.idleTimeoutMs), c.onTimeout)
}

func (c *connection) onTimeout() {
	if c.state == connClosed {
		return
	}
	c.closeConnection()
}

// closeConnection is idempotent. Every query still attached to this
// connection — queued (written but not yet written-out, or not yet even
// written) or already sent and awaiting a response — goes back onto the
// client's pending list so a fresh connection can pick it up: ORPHANED is a
// transient waypoint, not a dead end, per spec.md's "the query is then
// re-queued on the client's pending list". Grounded on _close_connection
// plus the requeue behavior _write_tcp_query_cb's failure path implies.
func (c *connection) closeConnection() {
	if c.state == connClosed {
		return
	}
	c.state = connClosed
	c.client.conns.tryRemove(c.node)

	if c.idleTimer != nil {
		c.idleTimer.stop()
		c.idleTimer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	requeue := func(n *node[*tcpQuery]) {
		q := n.val
		if q.state == queryPendingClose {
			return
		}
		q.state = queryPendingWrite
		q.conn = nil
		c.client.pending.pushBack(n)
	}
	c.sent.drain(requeue)
	c.queued.drain(requeue)

	// Covers both: queries this connection had already pulled off
	// client.pending and is now handing back (above), and queries still
	// sitting on client.pending because this connection never made it to
	// ACTIVE in the first place (a failed dial never calls flushPending).
	c.client.dispatch()
}
