package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"

	dnssim "github.com/cznic-dnsjit/dnssim-go"
)

// ingestRecord is one line of the ndjson input this command reads: the
// captured packet's source/destination IPs and its raw DNS payload,
// base64-encoded. This format, and this reader, are a minimal stand-in for
// the packet-capture producer spec.md's "Inputs (from ingest)" section
// explicitly leaves out of scope — Receive itself only ever sees the
// resulting dnssim.Object chain, never this JSON shape.
type ingestRecord struct {
	Src     string `json:"src_ip"`
	Dst     string `json:"dst_ip"`
	Payload string `json:"payload"`
}

// ingestReader decodes one dnssim.Object chain per ndjson line.
type ingestReader struct {
	sc *bufio.Scanner
}

func newIngestReader(r io.Reader) *ingestReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &ingestReader{sc: sc}
}

// next returns the next object chain, or io.EOF once the input is exhausted.
func (r *ingestReader) next() (dnssim.Object, error) {
	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec ingestRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("ingest: decode record: %w", err)
		}

		payload, err := base64.StdEncoding.DecodeString(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("ingest: decode payload: %w", err)
		}

		dst := net.ParseIP(rec.Dst)
		if dst == nil {
			return nil, fmt.Errorf("ingest: invalid dst_ip %q", rec.Dst)
		}
		src := net.ParseIP(rec.Src)

		var ipLayer dnssim.Object
		if v4 := dst.To4(); v4 != nil {
			var s, d [4]byte
			copy(d[:], v4)
			if src != nil {
				if sv4 := src.To4(); sv4 != nil {
					copy(s[:], sv4)
				}
			}
			ipLayer = dnssim.NewIP(nil, s, d)
		} else {
			var s, d [16]byte
			copy(d[:], dst.To16())
			if src != nil {
				copy(s[:], src.To16())
			}
			ipLayer = dnssim.NewIP6(nil, s, d)
		}
		return dnssim.NewPayload(ipLayer, payload), nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
