package protocol

import "github.com/loyalty/ptcore/group"

// Scheme is the strategy interface that lets Server and Client share one
// implementation of the four-message protocol across both flavors: the
// semi-honest variant (SemiHonest) and the maliciously-secure variant
// (Malicious). It mirrors the teacher's own Store/Transport
// dependency-injection shape.
type Scheme interface {
	// Name identifies the scheme for logging.
	Name() string

	// PayloadSize is the fixed hybrid-encryption plaintext length this
	// scheme uses: 32 bytes semi-honest, 68 bytes malicious.
	PayloadSize() int

	// SampleBase returns a fresh per-transaction base nonce. The malicious
	// variant returns 32 random bytes; the semi-honest variant returns the
	// zero value (unused, since g is always the fixed generator).
	SampleBase(g *group.Group) [32]byte

	// TxBase derives the per-transaction base point g from a base nonce:
	// hash_to_group(base) for the malicious variant, G for semi-honest.
	TxBase(g *group.Group, base [32]byte) group.Point

	// EncodePayload builds the hybrid-encryption plaintext delivered to
	// the barcode owner.
	EncodePayload(mBits [32]byte, x int64, base [32]byte) []byte

	// DecodePayload reverses EncodePayload.
	DecodePayload(payload []byte) (mBits [32]byte, x int64, base [32]byte, err error)

	// SignMaterial is the byte string the server signs at process_tx and
	// re-signs, unchanged, at send_receipts.
	SignMaterial(hm group.Point, base [32]byte) []byte

	// NewBalance returns a freshly registered user's zero balance.
	NewBalance(g *group.Group, ownPK group.Point) Balance

	// BuildDelta is computed client-side, where x is known in the clear:
	// the malicious variant's delta is just gmx; the semi-honest variant's
	// delta is a fresh ElGamal encryption of x·G under recipientPK, so the
	// server can fold it in homomorphically without ever learning x.
	BuildDelta(g *group.Group, x group.Scalar, gmx group.Point, recipientPK group.Point) Balance

	// ApplyDelta folds delta into bal, signed +1 for the shopper and -1
	// for the barcode owner. The server calls this without ever seeing x.
	ApplyDelta(g *group.Group, bal, delta Balance, sign int64) (Balance, error)
}
