package dnssim

import (
	"errors"
	"fmt"
)

// ErrUnsupportedTransport is returned by SetTransport for any transport
// other than UDP or TCP (spec.md §6: "Only UDP and TCP are implemented;
// others are rejected at configure time").
var ErrUnsupportedTransport = errors.New("dnssim: unsupported transport")

// ErrNoTarget is the error a transport hits when a request is dispatched
// before SetTarget: the UDP path logs it, the TCP dial fails with it. No
// exported method returns it; such requests end by timing out.
var ErrNoTarget = errors.New("dnssim: target not set")

// MaxClientsExceededError records a dropped packet whose derived client id
// fell outside the configured client table (spec.md §4.1 step 4).
type MaxClientsExceededError struct {
	ClientID   uint32
	MaxClients int
}

func (e MaxClientsExceededError) Error() string {
	return fmt.Sprintf("client %d exceeded max_clients (%d)", e.ClientID, e.MaxClients)
}
