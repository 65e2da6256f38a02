package dnssim

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

func buildQuery(t *testing.T, id uint16) []byte {
	t.Helper()
	m := new(dns.Msg)
	m.SetQuestion("example.com.", dns.TypeA)
	m.Id = id
	buf, err := m.Pack()
	require.NoError(t, err)
	return buf
}

func waitFor(t *testing.T, deadline time.Duration, cond func() bool) {
	t.Helper()
	end := time.After(deadline)
	for {
		if cond() {
			return
		}
		select {
		case <-end:
			t.Fatal("condition never became true")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestEngineUDPAnswer(t *testing.T) {
	pc, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer pc.Close()

	go func() {
		buf := make([]byte, 512)
		n, addr, err := pc.ReadFromUDP(buf)
		if err != nil {
			return
		}
		var m dns.Msg
		if err := m.Unpack(buf[:n]); err != nil {
			return
		}
		m.Response = true
		m.Rcode = dns.RcodeSuccess
		out, _ := m.Pack()
		_, _ = pc.WriteToUDP(out, addr)
	}()

	e := New(1)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, e.SetTarget("127.0.0.1", port))
	e.SetTimeoutMs(2000)

	obj := NewPayload(NewIP(nil, [4]byte{127, 0, 0, 1}, [4]byte{0, 0, 0, 0}), buildQuery(t, 4242))
	e.Receive(obj)

	waitFor(t, 2*time.Second, func() bool {
		e.RunNowait()
		snap := e.StatsSum()
		return snap.Answers == 1
	})

	snap := e.StatsSum()
	require.EqualValues(t, 1, snap.Requests)
	require.EqualValues(t, 0, snap.Ongoing)
	require.EqualValues(t, 1, snap.Rcode[rcodeNoError])
}

func TestEngineUDPTimeout(t *testing.T) {
	pc, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer pc.Close()
	// Deliberately never respond — the query must time out.

	e := New(1)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, e.SetTarget("127.0.0.1", port))
	e.SetTimeoutMs(50)

	obj := NewPayload(NewIP(nil, [4]byte{127, 0, 0, 1}, [4]byte{0, 0, 0, 0}), buildQuery(t, 7))
	e.Receive(obj)

	waitFor(t, 2*time.Second, func() bool {
		e.RunNowait()
		return e.StatsSum().Ongoing == 0
	})

	snap := e.StatsSum()
	require.EqualValues(t, 1, snap.Requests)
	require.EqualValues(t, 0, snap.Answers)
}

// TestEngineFreeClosesTCPConnectionsIdempotently exercises Free against a
// pooled TCP connection: UDP has no persistent engine-owned handle left to
// close (each query's socket tears itself down in sendUDP), so the only
// thing left for Free to do is drain every client's connection list.
func TestEngineFreeClosesTCPConnectionsIdempotently(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	tcpEchoTarget(t, ln, 1)

	e := New(1)
	require.NoError(t, e.SetTransport(TransportTCP))
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, e.SetTarget("127.0.0.1", port))
	e.SetTimeoutMs(2000)

	obj := NewPayload(NewIP(nil, [4]byte{127, 0, 0, 1}, [4]byte{0, 0, 0, 0}), buildQuery(t, 1))
	e.Receive(obj)

	waitFor(t, 2*time.Second, func() bool {
		e.RunNowait()
		return e.StatsSum().Answers == 1
	})

	e.Free()
	e.Free() // idempotent
}

func TestEngineClientIDOutOfRange(t *testing.T) {
	e := New(1) // only client id 0 is valid

	obj := NewPayload(NewIP(nil, [4]byte{127, 0, 0, 1}, [4]byte{0, 0, 0, 5}), buildQuery(t, 1))
	e.Receive(obj)
	e.RunNowait()

	require.EqualValues(t, 1, e.Dropped())
	require.EqualValues(t, 0, e.StatsSum().Requests)
}

func tcpEchoTarget(t *testing.T, ln net.Listener, n int) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < n; i++ {
			var lenBuf [2]byte
			if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
				return
			}
			msgLen := binary.BigEndian.Uint16(lenBuf[:])
			msgBuf := make([]byte, msgLen)
			if _, err := io.ReadFull(conn, msgBuf); err != nil {
				return
			}
			var m dns.Msg
			if err := m.Unpack(msgBuf); err != nil {
				return
			}
			m.Response = true
			m.Rcode = dns.RcodeSuccess
			out, _ := m.Pack()
			frame := make([]byte, 2+len(out))
			binary.BigEndian.PutUint16(frame, uint16(len(out)))
			copy(frame[2:], out)
			if _, err := conn.Write(frame); err != nil {
				return
			}
		}
	}()
}

func TestEngineTCPPipelining(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	tcpEchoTarget(t, ln, 2)

	e := New(1)
	require.NoError(t, e.SetTransport(TransportTCP))
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, e.SetTarget("127.0.0.1", port))
	e.SetTimeoutMs(2000)

	ip := func(clientOctet byte) *IP { return NewIP(nil, [4]byte{127, 0, 0, 1}, [4]byte{0, 0, 0, clientOctet}) }

	e.Receive(NewPayload(ip(0), buildQuery(t, 1)))
	e.RunNowait()
	e.Receive(NewPayload(ip(0), buildQuery(t, 2)))
	e.RunNowait()

	waitFor(t, 2*time.Second, func() bool {
		e.RunNowait()
		return e.StatsSum().Answers == 2
	})

	snap := e.StatsSum()
	require.EqualValues(t, 2, snap.Requests)
	require.EqualValues(t, 0, snap.Ongoing)
}

// TestEngineTCPPipeliningOutOfOrder pipelines 10 queries onto one connection
// and has the target read all 10 before answering any of them, in reverse
// order — the scenario spec.md §8.3 describes. deliverMessage's id scan over
// c.sent (connection.go) must match each reply to its query regardless of
// write order, not assume answers arrive FIFO.
func TestEngineTCPPipeliningOutOfOrder(t *testing.T) {
	const n = 10
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		ids := make([]uint16, n)
		for i := 0; i < n; i++ {
			var lenBuf [2]byte
			if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
				return
			}
			msgBuf := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
			if _, err := io.ReadFull(conn, msgBuf); err != nil {
				return
			}
			var m dns.Msg
			if err := m.Unpack(msgBuf); err != nil {
				return
			}
			ids[i] = m.Id
		}

		for i := n - 1; i >= 0; i-- {
			var m dns.Msg
			m.Id = ids[i]
			m.Response = true
			m.Rcode = dns.RcodeSuccess
			out, _ := m.Pack()
			frame := make([]byte, 2+len(out))
			binary.BigEndian.PutUint16(frame, uint16(len(out)))
			copy(frame[2:], out)
			if _, err := conn.Write(frame); err != nil {
				return
			}
		}
	}()

	e := New(1)
	require.NoError(t, e.SetTransport(TransportTCP))
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, e.SetTarget("127.0.0.1", port))
	e.SetTimeoutMs(2000)

	ip := NewIP(nil, [4]byte{127, 0, 0, 1}, [4]byte{0, 0, 0, 0})
	for i := uint16(0); i < n; i++ {
		e.Receive(NewPayload(ip, buildQuery(t, 100+i)))
		e.RunNowait()
	}

	waitFor(t, 2*time.Second, func() bool {
		e.RunNowait()
		return e.StatsSum().Answers == n
	})

	snap := e.StatsSum()
	require.EqualValues(t, n, snap.Requests)
	require.EqualValues(t, n, snap.Answers)
	require.EqualValues(t, 0, snap.Ongoing)
}
