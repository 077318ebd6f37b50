package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zzhang154/Decentralized-Aggregation/names"
)

func TestRequestRoundtrip(t *testing.T) {
	rq := Request{
		Name:     names.Aggregate(names.NewIDSet(2, 5, 7), "r3"),
		Lifetime: 4 * time.Second,
	}
	lit, body, _ := TakeAny(rq.Encode())
	assert.Equal(t, byte(LitRequest), lit)

	got, err := ParseRequest(body)
	assert.NoError(t, err)
	assert.True(t, rq.Name.Equal(got.Name))
	assert.Equal(t, rq.Lifetime, got.Lifetime)
}

func TestResponseRoundtrip(t *testing.T) {
	rp := Response{Name: names.Singleton(9), Value: 90}
	lit, body, _ := TakeAny(rp.Encode())
	assert.Equal(t, byte(LitResponse), lit)

	got, err := ParseResponse(body)
	assert.NoError(t, err)
	assert.True(t, rp.Name.Equal(got.Name))
	assert.Equal(t, uint64(90), got.Value)
}

func TestResponseValueIsFixedWidth(t *testing.T) {
	rp := Response{Name: names.Singleton(1), Value: 1}
	enc := rp.Encode()
	// the 'V' record body must be exactly 8 bytes regardless of magnitude
	_, body, _ := TakeAny(enc)
	_, body, err := takeName(body)
	assert.NoError(t, err)
	val, _ := Take(LitValue, body)
	assert.Len(t, val, 8)
}

func TestMalformedValuePayload(t *testing.T) {
	// hand-build a response with a 3-byte value record
	body := appendName(nil, names.Singleton(4))
	body = append(body, Record(LitValue, []byte{1, 2, 3})...)
	rp, err := ParseResponse(body)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Equal(t, uint64(0), rp.Value)
	assert.True(t, names.Singleton(4).Equal(rp.Name))
}

func TestMalformedName(t *testing.T) {
	_, err := ParseRequest(Record('X', []byte("junk")))
	assert.ErrorIs(t, err, ErrMalformedName)
}
