package dnssim

import "fmt"

// Transport selects how a request's payload is put on the wire. Grounded
// on dnssim.c's output_dnssim_set_transport, which in the original only
// ever accepted UDP_ONLY — everything else is this package's supplemented
// support for plain DNS-over-TCP (spec.md Non-goals excludes DoT/DoH, not
// TCP itself).
type Transport int

const (
	TransportUDP Transport = iota
	TransportTCP
)

func (t Transport) String() string {
	switch t {
	case TransportUDP:
		return "udp"
	case TransportTCP:
		return "tcp"
	default:
		return fmt.Sprintf("transport(%d)", int(t))
	}
}

// dispatch spawns the transport-specific query for an already-created
// request. Grounded on _create_req_udp and _create_query_tcp, unified here
// behind the one switch dnssim.c's output_dnssim_set_transport validation
// implies should exist once more than one transport is supported.
func (e *Engine) dispatch(req *request) {
	switch e.transport {
	case TransportTCP:
		newTCPQuery(req)
	default:
		newUDPQuery(req)
		e.sendUDP(req)
	}
}
