package dnssim

// Object is the common interface implemented by every layer of a captured
// packet handed to Receive. Layers are chained via Prev, mirroring dnsjit's
// core_object_t.obj_prev: a Payload object sits at the bottom, wrapped by an
// IP or IP6 object, optionally wrapped further by protocol-specific layers
// the ingest producer chooses to attach. The core never originates or
// mutates this chain, only walks it.
type Object interface {
	Prev() Object
}

// Payload is the raw bytes of one packet's transport payload — here, a
// complete DNS message. This is the only object type Receive requires at
// the bottom of the chain.
type Payload struct {
	prev Object
	Data []byte
}

func NewPayload(prev Object, data []byte) *Payload {
	return &Payload{prev: prev, Data: data}
}

func (p *Payload) Prev() Object { return p.prev }

// IP is an IPv4 layer. Only the destination address is needed by the core:
// its first four octets, big-endian, are the client id (spec.md §4.1).
type IP struct {
	prev     Object
	Src, Dst [4]byte
}

func NewIP(prev Object, src, dst [4]byte) *IP {
	return &IP{prev: prev, Src: src, Dst: dst}
}

func (ip *IP) Prev() Object { return ip.prev }

// IP6 is an IPv6 layer. The client id is still derived from the first four
// octets of the destination address, exactly as for IP (spec.md §9: "IPv4
// and v6 identically").
type IP6 struct {
	prev     Object
	Src, Dst [16]byte
}

func NewIP6(prev Object, src, dst [16]byte) *IP6 {
	return &IP6{prev: prev, Src: src, Dst: dst}
}

func (ip *IP6) Prev() Object { return ip.prev }

// firstPayload walks the chain to the first Payload layer, or returns nil if
// none is present.
func firstPayload(obj Object) *Payload {
	for obj != nil {
		if p, ok := obj.(*Payload); ok {
			return p
		}
		obj = obj.Prev()
	}
	return nil
}

// destClientOctets walks the chain to the first IP or IP6 layer and returns
// its destination address's first four octets, big-endian, as required by
// spec.md §4.1 step 3. ok is false if no IP/IP6 layer is present.
func destClientOctets(obj Object) (octets [4]byte, ok bool) {
	for obj != nil {
		switch v := obj.(type) {
		case *IP:
			return v.Dst, true
		case *IP6:
			return [4]byte{v.Dst[0], v.Dst[1], v.Dst[2], v.Dst[3]}, true
		}
		obj = obj.Prev()
	}
	return octets, false
}
