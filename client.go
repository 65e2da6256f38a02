package dnssim

// client is one simulated DNS originator, identified by the index its
// source IP was mapped to (spec.md §3 Client). It owns its open TCP
// connections and the queries still waiting for one of them to become
// active; both lists are exclusively its own, mutated only from the loop
// goroutine.
type client struct {
	id     uint32
	engine *Engine

	conns   linkedList[*connection]
	pending linkedList[*tcpQuery]
}

// clientTable is the fixed-size, index-addressed array of clients (C6):
// slot i is client id i, created once at engine initialization and never
// resized.
type clientTable struct {
	slots []*client
}

func newClientTable(engine *Engine, maxClients int) *clientTable {
	t := &clientTable{slots: make([]*client, maxClients)}
	for i := range t.slots {
		t.slots[i] = &client{id: uint32(i), engine: engine}
	}
	return t
}

func (t *clientTable) get(id uint32) (*client, bool) {
	if int(id) >= len(t.slots) {
		return nil, false
	}
	return t.slots[id], true
}

// dispatch finds a usable connection for this client's pending queries, or
// starts one. Grounded on _create_query_tcp's connection-list traversal: an
// ACTIVE connection gets the pending queries right now, a CONNECTING one is
// left to flush them itself on connect, otherwise a new connection is
// opened (but only if there is anything pending — closeConnection also
// calls this after requeueing, and may find the list already drained by a
// concurrent request closure).
func (c *client) dispatch() {
	if c.pending.Len() == 0 {
		return
	}
	var active *connection
	connecting := false
	c.conns.forEach(func(n *node[*connection]) bool {
		switch n.val.state {
		case connActive:
			active = n.val
			return false
		case connConnecting:
			connecting = true
		}
		return true
	})
	if active != nil {
		active.flushPending()
		return
	}
	if connecting {
		return
	}
	newConnection(c).connect()
}
