package zkp

import "github.com/loyalty/ptcore/group"

// DecryptionProof is the Chaum-Pedersen proof of correct ElGamal decryption
// used by the semi-honest settlement path: the client reveals the server's
// ciphertext (c0, c1) for its own balance, recovers the plaintext amount pt
// via BSGS, and proves it knew the secret key x behind its own public key
// h = x·G consistent with pt = dlog(c1 - x·c0), without revealing x.
//
// The two equations mirror v_t_check/w_t_check from the settlement
// flow this was distilled from: the first is an ordinary Schnorr proof of
// knowledge of x for h = x·G; the second ties that same x to the
// decryption by checking it against w = c1 - pt·G using base u = c0.
type DecryptionProof struct {
	C0, C1 group.Point
	H      group.Point // the prover's own public key, h = x*G
	Vt, Wt group.Point
	Xz     group.Scalar
}

// ProveDecryption proves that ct = (c0, c1) decrypts to pt under secret key
// sk, where h = sk*G is the prover's own public key.
func ProveDecryption(g *group.Group, sk group.Scalar, h, c0, c1 group.Point, pt group.Scalar) DecryptionProof {
	xt := g.RandomScalar()
	vt := g.Mul(xt, g.Base())
	wt := g.Mul(xt, c0)

	c := challenge(g, c0, c1, vt, wt)
	xz := g.AddScalar(xt, g.MulScalar(c, sk))

	return DecryptionProof{C0: c0, C1: c1, H: h, Vt: vt, Wt: wt, Xz: xz}
}

// VerifyDecryption checks a DecryptionProof against the claimed plaintext
// pt and the prover's public key h.
func VerifyDecryption(g *group.Group, h group.Point, pt group.Scalar, p DecryptionProof) error {
	c := challenge(g, p.C0, p.C1, p.Vt, p.Wt)

	w := g.Sub(p.C1, g.Mul(pt, g.Base()))

	lhs1 := g.Mul(p.Xz, g.Base())
	rhs1 := g.Add(p.Vt, g.Mul(c, h))
	if !pointEqual(lhs1, rhs1) {
		return ErrInvalidProof
	}

	lhs2 := g.Mul(p.Xz, p.C0)
	rhs2 := g.Add(p.Wt, g.Mul(c, w))
	if !pointEqual(lhs2, rhs2) {
		return ErrInvalidProof
	}

	return nil
}
