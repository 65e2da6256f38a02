package dnssim

import "github.com/miekg/dns"

// dnsHeader is the thin, pre-parsed DNS header accessor the core consumes
// (spec.md §1: "we consume a pre-parsed DNS header accessor"). Only the
// fields the request/correlation/stats machinery actually touches — the
// message id and the rcode — are extracted; full RR parsing is explicitly
// out of the core's scope.
type dnsHeader struct {
	ID    uint16
	Rcode int
}

// parseDNSHeader unpacks just enough of a DNS message to read its id and
// rcode. It is used both on the outbound side (to learn the id of a query
// we're about to send, spec.md §4.1 step 5) and on the inbound side (to
// correlate a UDP datagram or a framed TCP message to its request, spec.md
// §4.2/§4.3).
func parseDNSHeader(buf []byte) (dnsHeader, error) {
	var m dns.Msg
	if err := m.Unpack(buf); err != nil {
		return dnsHeader{}, err
	}
	return dnsHeader{ID: m.Id, Rcode: m.Rcode}, nil
}
