package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordRoundtrip(t *testing.T) {
	rec := Record('N', []byte("hello"))
	body, rest := Take('N', rec)
	assert.Equal(t, []byte("hello"), body)
	assert.Len(t, rest, 0)

	lit, body, _ := TakeAny(rec)
	assert.Equal(t, byte('N'), lit)
	assert.Equal(t, []byte("hello"), body)
}

func TestLongForm(t *testing.T) {
	big := bytes.Repeat([]byte{'x'}, 1000)
	rec := Record('V', big)
	assert.Equal(t, byte('V'), rec[0]) // uppercase header
	body, rest := Take('V', rec)
	assert.Equal(t, big, body)
	assert.Len(t, rest, 0)
}

func TestTakeMismatchAndIncomplete(t *testing.T) {
	rec := Record('N', []byte("abc"))
	body, rest := Take('V', rec)
	assert.Nil(t, body)
	assert.Nil(t, rest)

	body, rest = Take('N', rec[:2])
	assert.Nil(t, body)
	assert.Equal(t, rec[:2], rest)
}

func TestSplitKeepsIncompleteTail(t *testing.T) {
	a := Record('Q', []byte("one"))
	b := Record('P', []byte("two"))
	var buf bytes.Buffer
	buf.Write(a)
	buf.Write(b[:3]) // partial second record

	recs, err := Split(&buf)
	assert.NoError(t, err)
	assert.Equal(t, Records{a}, recs)
	assert.Equal(t, 3, buf.Len())

	buf.Write(b[3:])
	recs, err = Split(&buf)
	assert.NoError(t, err)
	assert.Equal(t, Records{b}, recs)
}

func TestSplitGarbage(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x02})
	_, err := Split(&buf)
	assert.ErrorIs(t, err, ErrBadRecord)
}

func TestZipUint64(t *testing.T) {
	for _, v := range []uint64{0, 1, 0xff, 0x1234, 0xffffffff, ^uint64(0)} {
		assert.Equal(t, v, UnzipUint64(ZipUint64(v)))
	}
	assert.Len(t, ZipUint64(0), 0)
	assert.Len(t, ZipUint64(0xff), 1)
}
