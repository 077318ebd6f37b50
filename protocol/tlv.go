// Package protocol implements the TLV wire format of the aggregation
// protocol.
//
// Every record is [type][length][body]. Two header forms exist, selected by
// body size:
//
//   - short, 2-byte header: [lowercase_type][length_as_1_byte], bodies up
//     to 255 bytes;
//   - long, 5-byte header: [UPPERCASE_TYPE][length_as_4_byte_LE], bodies up
//     to 2GB.
//
// Record types are uppercase letters A-Z; the case on the wire only encodes
// the header form. Packets are single top-level records ('Q' request, 'P'
// response) whose bodies nest the name, lifetime and value records.
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const caseBit byte = 'a' - 'A'

var (
	ErrIncomplete       = errors.New("incomplete TLV data")
	ErrBadRecord        = errors.New("bad TLV record format")
	ErrMalformedName    = errors.New("malformed name record")
	ErrMalformedPayload = errors.New("malformed value payload")
)

// Records is a batch of encoded records, convertible to net.Buffers.
type Records [][]byte

// ProbeHeader inspects a record header.
// lit is the record type ('A'-'Z'), '-' for garbage, 0 for incomplete.
func ProbeHeader(data []byte) (lit byte, hdrlen, bodylen int) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	t := data[0]
	switch {
	case t >= 'a' && t <= 'z': // short form
		if len(data) < 2 {
			return 0, 0, 0
		}
		return t - caseBit, 2, int(data[1])
	case t >= 'A' && t <= 'Z': // long form
		if len(data) < 5 {
			return 0, 0, 0
		}
		bl := binary.LittleEndian.Uint32(data[1:5])
		if bl > 0x7fffffff {
			return '-', 0, 0
		}
		return t, 5, int(bl)
	default:
		return '-', 0, 0
	}
}

// AppendHeader appends a record header, choosing the shortest form.
func AppendHeader(into []byte, lit byte, bodylen int) []byte {
	big := lit &^ caseBit
	if big < 'A' || big > 'Z' {
		panic("TLV record type is A..Z")
	}
	if bodylen <= 0xff {
		return append(into, big|caseBit, byte(bodylen))
	}
	if bodylen > 0x7fffffff {
		panic("oversized TLV record")
	}
	into = append(into, big)
	return binary.LittleEndian.AppendUint32(into, uint32(bodylen))
}

// Record encodes one record with the given body parts.
func Record(lit byte, body ...[]byte) []byte {
	total := 0
	for _, b := range body {
		total += len(b)
	}
	ret := make([]byte, 0, total+5)
	ret = AppendHeader(ret, lit, total)
	for _, b := range body {
		ret = append(ret, b...)
	}
	return ret
}

// Take extracts the body of the expected record type from trusted data.
// Returns nil body on type mismatch, (nil, data) when incomplete.
func Take(lit byte, data []byte) (body, rest []byte) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	if flit == 0 || hdrlen+bodylen > len(data) {
		return nil, data
	}
	if flit != lit {
		return nil, nil
	}
	return data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:]
}

// TakeAny extracts the next record of any type.
func TakeAny(data []byte) (lit byte, body, rest []byte) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	if flit == 0 || flit == '-' || hdrlen+bodylen > len(data) {
		return 0, nil, data
	}
	return flit, data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:]
}

// Split consumes all complete records from the buffer, leaving any
// incomplete tail in place for the next read.
func Split(data *bytes.Buffer) (recs Records, err error) {
	for data.Len() > 0 {
		lit, hlen, blen := ProbeHeader(data.Bytes())
		if lit == '-' {
			if len(recs) == 0 {
				err = ErrBadRecord
			}
			return
		}
		if lit == 0 || hlen+blen > data.Len() {
			return // incomplete, wait for more bytes
		}
		rec := make([]byte, hlen+blen)
		n, rerr := data.Read(rec)
		if rerr != nil || n != hlen+blen {
			return recs, ErrIncomplete
		}
		recs = append(recs, rec)
	}
	return
}
