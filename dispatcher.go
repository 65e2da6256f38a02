package dnssim

import "encoding/binary"

// Receive ingests one pre-parsed ingest object chain (spec.md §4.1/§6):
// it finds the innermost Payload and the client-identifying destination
// octets by walking the Prev chain, resolves those octets to a client slot,
// parses just enough of the DNS header to have a correlation id, and
// dispatches a request over the configured transport. Anything that can't
// be resolved this way is dropped and logged, never returned as an error —
// grounded on dnssim.c's _receive, which has no error return either.
func (e *Engine) Receive(obj Object) {
	payload := firstPayload(obj)
	if payload == nil {
		Log.Debug("dnssim: dropping object with no payload")
		e.dropped++
		return
	}
	octets, ok := destClientOctets(obj)
	if !ok {
		Log.Debug("dnssim: dropping object with no IP layer")
		e.dropped++
		return
	}
	clientID := binary.BigEndian.Uint32(octets[:])
	cl, ok := e.clients.get(clientID)
	if !ok {
		err := MaxClientsExceededError{ClientID: clientID, MaxClients: e.maxClients}
		Log.Debug(err.Error())
		e.dropped++
		return
	}

	hdr, err := parseDNSHeader(payload.Data)
	if err != nil {
		Log.WithError(err).Debug("dnssim: dropping object, unparseable dns message")
		e.dropped++
		return
	}

	req := newRequest(e, cl, payload.Data, hdr.ID)
	e.dispatch(req)
}
