package dnssim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstPayloadWalksChain(t *testing.T) {
	ip := NewIP(nil, [4]byte{10, 0, 0, 1}, [4]byte{0, 0, 0, 7})
	p := NewPayload(ip, []byte("hello"))

	found := firstPayload(p)
	require.Same(t, p, found)

	require.Nil(t, firstPayload(ip)) // no Payload above an IP-only chain
}

func TestDestClientOctetsIPv4(t *testing.T) {
	ip := NewIP(nil, [4]byte{10, 0, 0, 1}, [4]byte{1, 2, 3, 4})
	p := NewPayload(ip, nil)

	octets, ok := destClientOctets(p)
	require.True(t, ok)
	require.Equal(t, [4]byte{1, 2, 3, 4}, octets)
}

func TestDestClientOctetsIPv6(t *testing.T) {
	var dst [16]byte
	copy(dst[:], []byte{9, 8, 7, 6, 5, 4, 3, 2, 1, 0, 0, 0, 0, 0, 0, 0})
	ip6 := NewIP6(nil, [16]byte{}, dst)
	p := NewPayload(ip6, nil)

	octets, ok := destClientOctets(p)
	require.True(t, ok)
	require.Equal(t, [4]byte{9, 8, 7, 6}, octets)
}

func TestDestClientOctetsMissingIPLayer(t *testing.T) {
	p := NewPayload(nil, []byte("x"))
	_, ok := destClientOctets(p)
	require.False(t, ok)
}
