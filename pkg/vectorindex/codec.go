package vectorindex

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vectors are persisted as raw little-endian IEEE-754 float32 sequences,
// dim*4 bytes per vector. The layout is fixed: no header, no padding.

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector validates and decodes a stored blob. A byte length that is
// not a multiple of 4, or an element count that does not match dim, is
// corruption and fails with ErrDimensionMismatch rather than being
// truncated or padded.
func decodeVector(blob []byte, dim int) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: blob length %d is not a multiple of 4", ErrDimensionMismatch, len(blob))
	}
	n := len(blob) / 4
	if n != dim {
		return nil, fmt.Errorf("%w: stored %d elements, index configured for %d", ErrDimensionMismatch, n, dim)
	}

	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
