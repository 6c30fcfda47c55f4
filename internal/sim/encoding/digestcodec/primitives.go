// Package digestcodec holds the byte-level writers used by streaming state
// digests. Every variable-length field is length prefixed so adjacent fields
// cannot run into each other.
package digestcodec

import "encoding/binary"

type Writer interface {
	Write(p []byte) (n int, err error)
}

func WriteU64(w Writer, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.Write(tmp[:])
}

func WriteI64(w Writer, tmp *[8]byte, v int64) {
	WriteU64(w, tmp, uint64(v))
}

func WriteBytes(w Writer, tmp *[8]byte, b []byte) {
	WriteU64(w, tmp, uint64(len(b)))
	w.Write(b)
}

func WriteString(w Writer, tmp *[8]byte, s string) {
	WriteBytes(w, tmp, []byte(s))
}

func BoolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
