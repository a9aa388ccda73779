package zkp

import "github.com/loyalty/ptcore/group"

// TxWitness is one transaction's contribution to a settlement proof: its
// mask m, its signed amount x (already mapped to a scalar), its
// transaction base g_i, and the already-public h^{m_i}.
type TxWitness struct {
	M, X  group.Scalar
	GBase group.Point
	Hm    group.Point
}

// settleItem is the per-transaction portion of a SettleProof.
type settleItem struct {
	V, E, VX, EX               group.Point
	Bmt, Vt, Et, VXt, EXt      group.Point
	Mz, Xz, Az, Yz, Tz         group.Scalar
}

// SettleProof is the batched zk_settle proof covering n transactions.
type SettleProof struct {
	B1t, B2t group.Point
	Items    []settleItem
}

// ProveSettle builds a zk_settle proof that xClaim == Σ x_i and that bal
// equals the group-element accumulation Σ x_i·g_i·m_i, given the honest
// per-transaction witnesses.
func ProveSettle(g *group.Group, xClaim group.Scalar, bal group.Point, witnesses []TxWitness) SettleProof {
	n := len(witnesses)
	items := make([]settleItem, n)

	ys := make([]group.Scalar, n)
	ts := make([]group.Scalar, n)
	as := make([]group.Scalar, n)
	mts := make([]group.Scalar, n)
	xts := make([]group.Scalar, n)
	ats := make([]group.Scalar, n)
	yts := make([]group.Scalar, n)
	tts := make([]group.Scalar, n)

	b1tSum := g.ZeroScalar()
	b2t := g.Identity()

	for i, w := range witnesses {
		ys[i] = g.RandomScalar()
		as[i] = g.MulScalar(w.M, w.X)
		ts[i] = g.MulScalar(ys[i], w.X)

		v := g.Mul(ys[i], w.GBase)
		e := g.Add(g.Mul(ys[i], g.U()), g.Mul(w.M, w.GBase))
		vx := g.Mul(w.X, v)
		ex := g.Mul(w.X, e)

		mts[i] = g.RandomScalar()
		xts[i] = g.RandomScalar()
		ats[i] = g.RandomScalar()
		yts[i] = g.RandomScalar()
		tts[i] = g.RandomScalar()

		bmt := g.Mul(mts[i], g.H())
		vt := g.Mul(yts[i], w.GBase)
		et := g.Add(g.Mul(yts[i], g.U()), g.Mul(mts[i], w.GBase))
		vxt := g.Mul(tts[i], w.GBase)
		ext := g.Add(g.Mul(tts[i], g.U()), g.Mul(ats[i], w.GBase))

		items[i] = settleItem{
			V: v, E: e, VX: vx, EX: ex,
			Bmt: bmt, Vt: vt, Et: et, VXt: vxt, EXt: ext,
		}

		b1tSum = g.AddScalar(b1tSum, xts[i])
		// Critical: accumulate as group elements, one per-transaction base
		// g_i, never collapse into a single scalar·G multiplication.
		b2t = g.Add(b2t, g.Mul(ats[i], w.GBase))
	}

	b1t := g.Mul(b1tSum, g.Base())
	b1 := g.Mul(xClaim, g.Base())
	b2 := bal

	c := settleChallenge(g, b1, b2, witnesses, items)

	for i, w := range witnesses {
		items[i].Mz = g.AddScalar(mts[i], g.MulScalar(c, w.M))
		items[i].Xz = g.AddScalar(xts[i], g.MulScalar(c, w.X))
		items[i].Az = g.AddScalar(ats[i], g.MulScalar(c, as[i]))
		items[i].Yz = g.AddScalar(yts[i], g.MulScalar(c, ys[i]))
		items[i].Tz = g.AddScalar(tts[i], g.MulScalar(c, ts[i]))
	}

	return SettleProof{B1t: b1t, B2t: b2t, Items: items}
}

// VerifySettle checks a zk_settle proof against the public claimed balance,
// the server's stored balance point, and the per-transaction public
// (h^{m_i}, g_i) pairs. Equation order and challenge input order match
// ProveSettle's exactly.
func VerifySettle(g *group.Group, xClaim group.Scalar, bal group.Point, witnessPublics []TxWitness, proof SettleProof) error {
	if len(witnessPublics) != len(proof.Items) {
		return ErrInvalidProof
	}

	b1 := g.Mul(xClaim, g.Base())
	b2 := bal

	c := settleChallenge(g, b1, b2, witnessPublics, proof.Items)

	xzSum := g.ZeroScalar()
	b2Left := g.Identity()

	for i, w := range witnessPublics {
		it := proof.Items[i]
		xzSum = g.AddScalar(xzSum, it.Xz)
		b2Left = g.Add(b2Left, g.Mul(it.Az, w.GBase))

		lhs1 := g.Mul(it.Mz, g.H())
		rhs1 := g.Add(it.Bmt, g.Mul(c, w.Hm))
		if !pointEqual(lhs1, rhs1) {
			return ErrInvalidProof
		}

		lhs2 := g.Mul(it.Yz, w.GBase)
		rhs2 := g.Add(it.Vt, g.Mul(c, it.V))
		if !pointEqual(lhs2, rhs2) {
			return ErrInvalidProof
		}

		lhs3 := g.Add(g.Mul(it.Yz, g.U()), g.Mul(it.Mz, w.GBase))
		rhs3 := g.Add(it.Et, g.Mul(c, it.E))
		if !pointEqual(lhs3, rhs3) {
			return ErrInvalidProof
		}

		lhs4 := g.Mul(it.Tz, w.GBase)
		rhs4 := g.Add(it.VXt, g.Mul(c, it.VX))
		if !pointEqual(lhs4, rhs4) {
			return ErrInvalidProof
		}

		lhs5 := g.Add(g.Mul(it.Tz, g.U()), g.Mul(it.Az, w.GBase))
		rhs5 := g.Add(it.EXt, g.Mul(c, it.EX))
		if !pointEqual(lhs5, rhs5) {
			return ErrInvalidProof
		}
	}

	xzG := g.Mul(xzSum, g.Base())
	if !pointEqual(xzG, g.Add(proof.B1t, g.Mul(c, b1))) {
		return ErrInvalidProof
	}
	if !pointEqual(b2Left, g.Add(proof.B2t, g.Mul(c, b2))) {
		return ErrInvalidProof
	}

	return nil
}

// settleChallenge absorbs b1, b2, then for each transaction in order
// h^{m_i}, V_t_i, E_t_i, VX_t_i, EX_t_i — this exact order and nothing
// else, matching the transcript both prover and verifier must agree on.
func settleChallenge(g *group.Group, b1, b2 group.Point, witnesses []TxWitness, items []settleItem) group.Scalar {
	pts := make([]group.Point, 0, 2+5*len(items))
	pts = append(pts, b1, b2)
	for i, it := range items {
		pts = append(pts, witnesses[i].Hm, it.Vt, it.Et, it.VXt, it.EXt)
	}
	return challenge(g, pts...)
}
