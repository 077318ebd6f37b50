package protocol

import "encoding/binary"

// ZipUint64 packs an integer into its little-endian bytes with trailing
// zeros removed. Zero packs to an empty string. Used for lifetimes and
// other small header integers; never for response values, which stay
// fixed-width on the wire.
func ZipUint64(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	n := 8
	for n > 0 && buf[n-1] == 0 {
		n--
	}
	return buf[:n]
}

func UnzipUint64(zip []byte) (v uint64) {
	if len(zip) > 8 {
		return 0
	}
	var buf [8]byte
	copy(buf[:], zip)
	return binary.LittleEndian.Uint64(buf[:])
}
