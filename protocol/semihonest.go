package protocol

import (
	"fmt"

	"github.com/loyalty/ptcore/group"
)

// SemiHonest implements Scheme for the semi-honest variant: balances are
// ElGamal ciphertexts under each user's own public key, homomorphically
// updated in place by folding in a plaintext-domain delta x·G (the mask m
// used by zk_tx only binds the receipt delivered to the barcode owner and
// never factors into the stored balance, so settlement can recover
// Σ x_i directly via BSGS).
type SemiHonest struct{}

var _ Scheme = SemiHonest{}

func (SemiHonest) Name() string { return "semi-honest" }

func (SemiHonest) PayloadSize() int { return 32 }

func (SemiHonest) SampleBase(g *group.Group) [32]byte {
	return [32]byte{} // g is always the fixed generator; no nonce needed
}

func (SemiHonest) TxBase(g *group.Group, base [32]byte) group.Point {
	return g.Base()
}

func (SemiHonest) EncodePayload(mBits [32]byte, x int64, base [32]byte) []byte {
	out := make([]byte, 32)
	copy(out, mBits[:])
	return out
}

func (SemiHonest) DecodePayload(payload []byte) (mBits [32]byte, x int64, base [32]byte, err error) {
	if len(payload) != 32 {
		return mBits, 0, base, fmt.Errorf("protocol: semi-honest payload length %d != 32", len(payload))
	}
	copy(mBits[:], payload)
	return mBits, 0, base, nil
}

func (SemiHonest) SignMaterial(hm group.Point, base [32]byte) []byte {
	enc := group.PointEncode(hm)
	out := make([]byte, 32)
	copy(out, enc[:])
	return out
}

func (SemiHonest) NewBalance(g *group.Group, ownPK group.Point) Balance {
	r := g.RandomScalar()
	return CipherBalance{C0: g.Mul(r, g.Base()), C1: g.Mul(r, ownPK)}
}

// BuildDelta encrypts x·G under recipientPK with fresh randomness, so the
// server can homomorphically fold it into the stored ciphertext without
// ever learning x. gmx is unused here; it only matters to the malicious
// variant's accumulator.
func (SemiHonest) BuildDelta(g *group.Group, x group.Scalar, gmx group.Point, recipientPK group.Point) Balance {
	r := g.RandomScalar()
	c0 := g.Mul(r, g.Base())
	c1 := g.Add(g.Mul(r, recipientPK), g.Mul(x, g.Base()))
	return CipherBalance{C0: c0, C1: c1}
}

func (SemiHonest) ApplyDelta(g *group.Group, bal, delta Balance, sign int64) (Balance, error) {
	cb, ok := bal.(CipherBalance)
	if !ok {
		return nil, fmt.Errorf("protocol: semi-honest scheme got %T balance", bal)
	}
	db, ok := delta.(CipherBalance)
	if !ok {
		return nil, fmt.Errorf("protocol: semi-honest scheme got %T delta", delta)
	}
	dc0, dc1 := db.C0, db.C1
	if sign < 0 {
		dc0, dc1 = g.Neg(dc0), g.Neg(dc1)
	}
	return CipherBalance{C0: g.Add(cb.C0, dc0), C1: g.Add(cb.C1, dc1)}, nil
}
