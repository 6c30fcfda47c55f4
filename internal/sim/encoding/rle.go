package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a numeric overlay buffer as base64(varint pairs).
// The pairs are (value, run_len) repeated. An empty buffer encodes to "".
func EncodeRLE(vals []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(vals) {
		v := vals[i]
		run := 1
		for j := i + 1; j < len(vals) && vals[j] == v && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. Runs longer than maxLen in total are rejected
// so a corrupt buffer cannot balloon memory.
func DecodeRLE(b64 string) ([]uint16, error) {
	return DecodeRLEMax(b64, 1<<24)
}

func DecodeRLEMax(b64 string, maxLen int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if b > 0xFFFF {
			return nil, fmt.Errorf("value too large: %d", b)
		}
		if run == 0 || uint64(len(out))+run > uint64(maxLen) {
			return nil, fmt.Errorf("bad run length %d at %d", run, i)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, uint16(b))
		}
	}
	return out, nil
}
