package protocol

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// randIndex draws a uniform index in [0, n) using a cryptographically
// secure source.
func randIndex(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("protocol: randIndex: n must be positive, got %d", n)
	}
	bi, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(bi.Int64()), nil
}

// randBytes32 fills a fresh 32-byte random buffer.
func randBytes32() ([32]byte, error) {
	var out [32]byte
	if _, err := rand.Read(out[:]); err != nil {
		return out, err
	}
	return out, nil
}
