// Package hybrid implements the KEM/DEM hybrid encryption scheme the
// transaction protocol uses to deliver a per-transaction payload to the
// barcode owner: an ElGamal-encrypted random group element keys an
// AES-256-GCM envelope around the fixed-length payload.
package hybrid

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/loyalty/ptcore/group"
)

// ErrInvalidCiphertext is returned when a ciphertext fails AEAD
// authentication or carries a malformed nonce/payload length.
var ErrInvalidCiphertext = errors.New("hybrid: invalid ciphertext")

const nonceSize = 12

// Ciphertext is the wire form of a hybrid-encrypted payload: an ElGamal
// encryption of the KEM point p, plus the AES-GCM envelope around the
// payload keyed by SHA-256(point_encode(p)).
type Ciphertext struct {
	C0      group.Point
	C1      group.Point
	Nonce   [nonceSize]byte
	Payload []byte // ciphertext || GCM tag
}

// KeyPair is an ElGamal encryption key pair: SK is a scalar, PK = SK*G.
type KeyPair struct {
	SK group.Scalar
	PK group.Point
}

// GenerateKeyPair samples a fresh ElGamal encryption key pair.
func GenerateKeyPair(g *group.Group) KeyPair {
	sk := g.RandomScalar()
	return KeyPair{SK: sk, PK: g.Mul(sk, g.Base())}
}

// Encrypt encrypts payload for recipient pk. payload must already be the
// fixed length the caller's protocol variant expects (32 bytes for the
// semi-honest mask, 68 bytes for the malicious mask||x||base triple); this
// package does not pad or truncate.
func Encrypt(g *group.Group, pk group.Point, payload []byte) (Ciphertext, error) {
	r := g.RandomScalar()
	p := g.Mul(g.RandomScalar(), g.Base()) // random KEM point
	c0 := g.Mul(r, g.Base())
	c1 := g.Add(p, g.Mul(r, pk))

	key := kdf(p)
	aead, err := newAEAD(key)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("hybrid: build aead: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Ciphertext{}, fmt.Errorf("hybrid: nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce[:], payload, nil)
	return Ciphertext{C0: c0, C1: c1, Nonce: nonce, Payload: sealed}, nil
}

// Decrypt recovers the plaintext payload using the recipient's secret key.
func Decrypt(g *group.Group, sk group.Scalar, ct Ciphertext) ([]byte, error) {
	p := g.Sub(ct.C1, g.Mul(sk, ct.C0))
	key := kdf(p)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("hybrid: build aead: %w", err)
	}

	opened, err := aead.Open(nil, ct.Nonce[:], ct.Payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return opened, nil
}

// kdf derives the AES-256 key from the ElGamal KEM output point.
func kdf(p group.Point) []byte {
	enc := group.PointEncode(p)
	sum := sha256.Sum256(enc[:])
	return sum[:]
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
