package protocol

import (
	"encoding/binary"
	"time"

	"github.com/zzhang154/Decentralized-Aggregation/names"
)

// Wire record types.
const (
	LitRequest  = 'Q' // body: name record + lifetime record
	LitResponse = 'P' // body: name record + value record
	LitName     = 'N' // body: component records
	LitComp     = 'C' // body: raw component bytes
	LitLifetime = 'T' // body: zipped milliseconds
	LitValue    = 'V' // body: exactly 8 bytes, big-endian uint64
)

// valueLen is the fixed response payload size. Anything else is a
// protocol error for the aggregation layer.
const valueLen = 8

// Request asks for the sum over the id set named by Name.
type Request struct {
	Name     names.Name
	Lifetime time.Duration
}

// Response carries one unsigned 64-bit scalar: a source value or a
// (partial) sum.
type Response struct {
	Name  names.Name
	Value uint64
}

func appendName(into []byte, n names.Name) []byte {
	body := make([]byte, 0, 16*n.Len())
	for i := 0; i < n.Len(); i++ {
		body = append(body, Record(LitComp, []byte(n.At(i)))...)
	}
	into = AppendHeader(into, LitName, len(body))
	return append(into, body...)
}

func takeName(data []byte) (names.Name, []byte, error) {
	body, rest := Take(LitName, data)
	if body == nil {
		return names.Name{}, rest, ErrMalformedName
	}
	var comps []string
	for len(body) > 0 {
		comp, r := Take(LitComp, body)
		if comp == nil && r == nil {
			return names.Name{}, rest, ErrMalformedName
		}
		if comp == nil {
			return names.Name{}, rest, ErrIncomplete
		}
		comps = append(comps, string(comp))
		body = r
	}
	return names.New(comps...), rest, nil
}

// Encode serializes the request as one 'Q' record.
func (rq Request) Encode() []byte {
	body := appendName(nil, rq.Name)
	body = append(body, Record(LitLifetime, ZipUint64(uint64(rq.Lifetime.Milliseconds())))...)
	return Record(LitRequest, body)
}

// ParseRequest decodes the body of a 'Q' record.
func ParseRequest(body []byte) (rq Request, err error) {
	rq.Name, body, err = takeName(body)
	if err != nil {
		return
	}
	ms, rest := Take(LitLifetime, body)
	if ms == nil && rest == nil {
		return rq, ErrBadRecord
	}
	rq.Lifetime = time.Duration(UnzipUint64(ms)) * time.Millisecond
	return
}

// Encode serializes the response as one 'P' record. The value is always
// eight big-endian bytes.
func (rp Response) Encode() []byte {
	var val [valueLen]byte
	binary.BigEndian.PutUint64(val[:], rp.Value)
	body := appendName(nil, rp.Name)
	body = append(body, Record(LitValue, val[:])...)
	return Record(LitResponse, body)
}

// ParseResponse decodes the body of a 'P' record. A malformed value
// payload yields the name with value 0 and ErrMalformedPayload; the
// caller degrades gracefully instead of dropping the entry.
func ParseResponse(body []byte) (rp Response, err error) {
	rp.Name, body, err = takeName(body)
	if err != nil {
		return
	}
	val, _ := Take(LitValue, body)
	if len(val) != valueLen {
		return rp, ErrMalformedPayload
	}
	rp.Value = binary.BigEndian.Uint64(val)
	return
}
