package digestcodec

import (
	"bytes"
	"testing"
)

func TestWriteString_LengthPrefixSeparatesFields(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	WriteString(&a, &tmp, "ab")
	WriteString(&a, &tmp, "c")
	WriteString(&b, &tmp, "a")
	WriteString(&b, &tmp, "bc")
	if bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("length prefix failed to separate fields")
	}
}

func TestWriteSortedNonZeroIntMap_OrderAndZeros(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	WriteSortedNonZeroIntMap(&a, &tmp, map[string]int{"x": 1, "y": 2, "z": 0})
	WriteSortedNonZeroIntMap(&b, &tmp, map[string]int{"y": 2, "x": 1})
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("map encoding depends on order or zero entries")
	}
}
