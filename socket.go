package dnssim

import (
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// SetTarget resolves host:port as the simulator's destination, in both its
// UDP and TCP forms (spec.md §4.1/§4.3 never dispatch to a target the
// engine hasn't resolved up front). The original's output_dnssim_target
// only ever handled IPv6, with IPv4 left as a TODO — SPEC_FULL.md's
// supplemented-features section closes that gap.
func (e *Engine) SetTarget(host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("dnssim: resolve target: %w", err)
	}
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return fmt.Errorf("dnssim: resolve target: %w", err)
	}
	e.targetUDP = udpAddr
	e.targetTCP = tcpAddr
	e.targetIsV6 = udpAddr.IP.To4() == nil
	return nil
}

// AddSource registers one source IP to round-robin outgoing traffic across
// (SPEC_FULL.md "round-robin source-address selection", closing
// the original's unimplemented _bind_before_connect). With no sources
// configured the OS picks the source address as usual.
func (e *Engine) AddSource(host string) error {
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("dnssim: invalid source address %q", host)
	}
	e.sources = append(e.sources, ip)
	return nil
}

func (e *Engine) nextSourceIP() net.IP {
	if len(e.sources) == 0 {
		return nil
	}
	idx := atomic.AddInt64(&e.sourceIdx, 1) - 1
	return e.sources[int(idx)%len(e.sources)]
}

// reusePortControl sets SO_REUSEADDR and SO_REUSEPORT on every socket the
// engine opens, so a replay run can rebind the same source ports a prior
// (possibly still TIME_WAIT'd) run used.
func reusePortControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		if sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// sendUDP opens a private, single-use UDP socket for req — one dial, one
// write, one read — mirroring dnsjit's one uv_udp_t per outstanding query
// (_create_req_udp) rather than demultiplexing many requests' responses off
// a single shared socket by DNS id alone. The socket's read deadline is set
// to the request's own timeout, so a query that never gets an answer
// releases its goroutine and file descriptor on its own; there is nothing
// for the loop to cancel. Grounded on _create_req_udp's send path, with the
// blocking dial/write/read moved off the loop goroutine the way every other
// transport I/O in this package is.
func (e *Engine) sendUDP(req *request) {
	if e.targetUDP == nil {
		Log.WithError(ErrNoTarget).Debug("dnssim: udp send skipped")
		return
	}
	network := "udp4"
	if e.targetIsV6 {
		network = "udp6"
	}
	d := net.Dialer{Control: reusePortControl}
	if src := e.nextSourceIP(); src != nil {
		d.LocalAddr = &net.UDPAddr{IP: src}
	}
	target := e.targetUDP.String()
	timeout := msDuration(req.timeoutMs)

	e.loop.addHandle()
	go func() {
		defer e.loop.post(e.loop.removeHandle)

		conn, err := d.Dial(network, target)
		if err != nil {
			Log.WithError(err).Debug("dnssim: udp dial failed, query will time out")
			return
		}
		defer conn.Close()

		if _, err := conn.Write(req.payload); err != nil {
			Log.WithError(err).Debug("dnssim: udp send failed")
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			Log.WithError(err).Debug("dnssim: udp set read deadline failed")
			return
		}
		buf := make([]byte, 65535)
		n, err := conn.Read(buf)
		if err != nil {
			// Deadline exceeded or the target reset the socket: the
			// request's own timer is what accounts the timeout.
			return
		}
		data := append([]byte(nil), buf[:n]...)
		e.loop.post(func() {
			hdr, err := parseDNSHeader(data)
			if err != nil || hdr.ID != req.dnsID {
				return
			}
			req.answered(hdr)
		})
	}()
}

// dialTCP opens one pooled TCP connection to the target, bound to the next
// round-robin source address if any are configured. Grounded on tcp.c's
// _connect_tcp_handle.
func (e *Engine) dialTCP() (net.Conn, error) {
	if e.targetTCP == nil {
		return nil, ErrNoTarget
	}
	d := net.Dialer{Control: reusePortControl}
	if src := e.nextSourceIP(); src != nil {
		d.LocalAddr = &net.TCPAddr{IP: src}
	}
	conn, err := d.Dial("tcp", e.targetTCP.String())
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}
