package zkp

import "github.com/loyalty/ptcore/group"

// TxProof is the non-interactive zk_tx proof that a single transaction's
// masked outputs h^m (R2) and g^{mx} (R3) are well-formed, for a
// transaction base g that is either the fixed generator G (semi-honest
// variant) or hash_to_group(base) (malicious variant).
type TxProof struct {
	V, E, VX, EX               group.Point
	R2t, R3t, Vt, Et, VXt, EXt group.Point
	Mz, Az, Yz, Tz             group.Scalar
}

// ProveTx builds a zk_tx proof for the statement "I know (m, x, y, t) such
// that R2 = m·H, R3 = (m·x)·gBase, V = y·gBase, E = y·U + m·gBase,
// VX = t·gBase, EX = t·U + (m·x)·gBase", where R2 and R3 are the caller's
// already-computed hm and gmx.
func ProveTx(g *group.Group, gBase, hm, gmx group.Point, m, x group.Scalar) TxProof {
	y := g.RandomScalar()
	t := g.RandomScalar()
	a := g.MulScalar(m, x)

	v := g.Mul(y, gBase)
	e := g.Add(g.Mul(y, g.U()), g.Mul(m, gBase))
	vx := g.Mul(t, gBase)
	ex := g.Add(g.Mul(t, g.U()), g.Mul(a, gBase))

	mt := g.RandomScalar()
	at := g.RandomScalar()
	yt := g.RandomScalar()
	tt := g.RandomScalar()

	r2t := g.Mul(mt, g.H())
	r3t := g.Mul(at, gBase)
	vt := g.Mul(yt, gBase)
	et := g.Add(g.Mul(yt, g.U()), g.Mul(mt, gBase))
	vxt := g.Mul(tt, gBase)
	ext := g.Add(g.Mul(tt, g.U()), g.Mul(at, gBase))

	c := challenge(g, hm, gmx, v, e, vx, ex, r2t, r3t, vt, et, vxt, ext)

	mz := g.AddScalar(mt, g.MulScalar(c, m))
	az := g.AddScalar(at, g.MulScalar(c, a))
	yz := g.AddScalar(yt, g.MulScalar(c, y))
	tz := g.AddScalar(tt, g.MulScalar(c, t))

	return TxProof{
		V: v, E: e, VX: vx, EX: ex,
		R2t: r2t, R3t: r3t, Vt: vt, Et: et, VXt: vxt, EXt: ext,
		Mz: mz, Az: az, Yz: yz, Tz: tz,
	}
}

// VerifyTx checks all six zk_tx equations. gBase is the same per-transaction
// base point the prover used; hm and gmx are the public R2/R3 values.
func VerifyTx(g *group.Group, gBase, hm, gmx group.Point, p TxProof) error {
	c := challenge(g, hm, gmx, p.V, p.E, p.VX, p.EX, p.R2t, p.R3t, p.Vt, p.Et, p.VXt, p.EXt)

	lhs1 := g.Mul(p.Mz, g.H())
	rhs1 := g.Add(p.R2t, g.Mul(c, hm))
	if !pointEqual(lhs1, rhs1) {
		return ErrInvalidProof
	}

	lhs2 := g.Mul(p.Az, gBase)
	rhs2 := g.Add(p.R3t, g.Mul(c, gmx))
	if !pointEqual(lhs2, rhs2) {
		return ErrInvalidProof
	}

	lhs3 := g.Mul(p.Yz, gBase)
	rhs3 := g.Add(p.Vt, g.Mul(c, p.V))
	if !pointEqual(lhs3, rhs3) {
		return ErrInvalidProof
	}

	lhs4 := g.Add(g.Mul(p.Yz, g.U()), g.Mul(p.Mz, gBase))
	rhs4 := g.Add(p.Et, g.Mul(c, p.E))
	if !pointEqual(lhs4, rhs4) {
		return ErrInvalidProof
	}

	lhs5 := g.Mul(p.Tz, gBase)
	rhs5 := g.Add(p.VXt, g.Mul(c, p.VX))
	if !pointEqual(lhs5, rhs5) {
		return ErrInvalidProof
	}

	lhs6 := g.Add(g.Mul(p.Tz, g.U()), g.Mul(p.Az, gBase))
	rhs6 := g.Add(p.EXt, g.Mul(c, p.EX))
	if !pointEqual(lhs6, rhs6) {
		return ErrInvalidProof
	}

	return nil
}
