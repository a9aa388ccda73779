// Package zkp implements the two Fiat-Shamir Σ-protocols the transaction
// protocol relies on: zk_tx, a six-equation proof that a single
// transaction's masked outputs are well-formed, and zk_settle, an n-fold
// batched proof tying a claimed balance to a set of per-transaction
// witnesses at settlement time.
package zkp

import (
	"errors"

	"github.com/loyalty/ptcore/group"
)

// ErrInvalidProof is returned by every Verify routine in this package when
// any constituent equation fails to hold.
var ErrInvalidProof = errors.New("zkp: invalid proof")

func challenge(g *group.Group, pts ...group.Point) group.Scalar {
	parts := make([][]byte, len(pts))
	for i, p := range pts {
		enc := group.PointEncode(p)
		parts[i] = enc[:]
	}
	return g.HashToScalar(parts...)
}

// pointEqual reports whether two points encode identically; it is used
// instead of direct kyber.Point.Equal only for readability at call sites.
func pointEqual(a, b group.Point) bool {
	return group.PointEqual(a, b)
}
