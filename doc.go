/*
Package dnssim implements a high-throughput DNS traffic simulator: given a
stream of already-parsed captured query objects, it replays them against a
configured target resolver and measures per-request latency and rcode
distribution.

Each distinct source IP in the input is replayed as an independent logical
client, so the target is exercised with realistic connection
fan-out instead of as a single sender. Queries are dispatched over UDP or
plain DNS-over-TCP (framed per RFC 1035 §4.2.2); DNS-over-TLS and DoH are not
implemented. A query lost over UDP is never retransmitted — it is simply
counted as a timeout.

The engine does not itself capture or parse packets; it is driven by an
external producer that calls Receive with a chain of pre-parsed objects
(Payload, IP or IP6, ...). It does not perform DNS resolution: there is no
caching and no recursion, only forwarding and measurement.

	e := dnssim.New(1024)
	e.SetTransport(dnssim.TransportTCP)
	_ = e.SetTarget("127.0.0.1", 53)
	e.SetTimeoutMs(2000)
	e.Receive(obj)
	for e.RunNowait() > 0 {
	}
	snap := e.StatsSum()

See cmd/dnssim-replay for a runnable driver.
*/
package dnssim
