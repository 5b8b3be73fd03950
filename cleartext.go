package cipherbatch

import (
	"fmt"

	"github.com/holiman/uint256"
)

// CleartextWordSize is the width of one decrypted value inside an oracle
// payload. Values are big-endian and left-padded.
const CleartextWordSize = 32

func EncodeCleartexts(values []uint64) []byte {
	payload := make([]byte, 0, len(values)*CleartextWordSize)
	for _, v := range values {
		word := uint256.NewInt(v).Bytes32()
		payload = append(payload, word[:]...)
	}
	return payload
}

// DecodeCleartexts consumes exactly n words from payload.
func DecodeCleartexts(payload []byte, n int) ([]uint64, error) {
	if n < 0 || len(payload) != n*CleartextWordSize {
		return nil, fmt.Errorf("%w: cleartext payload is %d bytes, expected %d values", ErrInvalidArgument, len(payload), n)
	}

	values := make([]uint64, n)
	for i := 0; i < n; i++ {
		word := new(uint256.Int).SetBytes32(payload[i*CleartextWordSize : (i+1)*CleartextWordSize])
		if !word.IsUint64() {
			return nil, fmt.Errorf("%w: cleartext %d overflows uint64", ErrInvalidArgument, i)
		}
		values[i] = word.Uint64()
	}
	return values, nil
}
