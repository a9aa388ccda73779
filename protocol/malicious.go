package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/loyalty/ptcore/group"
)

// Malicious implements Scheme for the maliciously-secure variant: balances
// are a single group element accumulating g_i^{m_i x_i} under a fresh
// per-transaction base derived from a server nonce, reconciled at
// settlement by the batched zk_settle proof.
type Malicious struct{}

var _ Scheme = Malicious{}

func (Malicious) Name() string { return "malicious" }

func (Malicious) PayloadSize() int { return 32 + 4 + 32 }

func (Malicious) SampleBase(g *group.Group) [32]byte {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("protocol: sampling base nonce: %v", err))
	}
	return b
}

func (Malicious) TxBase(g *group.Group, base [32]byte) group.Point {
	return g.HashToGroup(base[:])
}

func (Malicious) EncodePayload(mBits [32]byte, x int64, base [32]byte) []byte {
	out := make([]byte, 68)
	copy(out[0:32], mBits[:])
	binary.BigEndian.PutUint32(out[32:36], uint32(int32(x)))
	copy(out[36:68], base[:])
	return out
}

func (Malicious) DecodePayload(payload []byte) (mBits [32]byte, x int64, base [32]byte, err error) {
	if len(payload) != 68 {
		return mBits, 0, base, fmt.Errorf("protocol: malicious payload length %d != 68", len(payload))
	}
	copy(mBits[:], payload[0:32])
	x = int64(int32(binary.BigEndian.Uint32(payload[32:36])))
	copy(base[:], payload[36:68])
	return mBits, x, base, nil
}

func (Malicious) SignMaterial(hm group.Point, base [32]byte) []byte {
	enc := group.PointEncode(hm)
	out := make([]byte, 0, 64)
	out = append(out, enc[:]...)
	out = append(out, base[:]...)
	return out
}

func (Malicious) NewBalance(g *group.Group, ownPK group.Point) Balance {
	return PointBalance{P: g.Identity()}
}

func (Malicious) BuildDelta(g *group.Group, x group.Scalar, gmx group.Point, recipientPK group.Point) Balance {
	return PointBalance{P: gmx}
}

func (Malicious) ApplyDelta(g *group.Group, bal, delta Balance, sign int64) (Balance, error) {
	pb, ok := bal.(PointBalance)
	if !ok {
		return nil, fmt.Errorf("protocol: malicious scheme got %T balance", bal)
	}
	db, ok := delta.(PointBalance)
	if !ok {
		return nil, fmt.Errorf("protocol: malicious scheme got %T delta", delta)
	}
	d := db.P
	if sign < 0 {
		d = g.Neg(d)
	}
	return PointBalance{P: g.Add(pb.P, d)}, nil
}
