package group

import "testing"

func TestGeneratorsAreDistinctAndDeterministic(t *testing.T) {
	g1 := New()
	g2 := New()

	if !PointEqual(g1.H(), g2.H()) {
		t.Fatalf("H is not deterministic across instances")
	}
	if !PointEqual(g1.U(), g2.U()) {
		t.Fatalf("U is not deterministic across instances")
	}
	if PointEqual(g1.H(), g1.U()) {
		t.Fatalf("H and U must not coincide")
	}
	if PointEqual(g1.H(), g1.Base()) {
		t.Fatalf("H must not coincide with the base generator G")
	}
}

func TestPointEncodeDecodeRoundTrip(t *testing.T) {
	g := New()
	p := g.Mul(g.RandomScalar(), g.Base())

	enc := PointEncode(p)
	got, err := g.PointDecode(enc)
	if err != nil {
		t.Fatalf("PointDecode: %v", err)
	}
	if !PointEqual(p, got) {
		t.Fatalf("round trip mismatch")
	}
}

func TestScalarEncodeDecodeRoundTrip(t *testing.T) {
	g := New()
	s := g.RandomScalar()

	enc := ScalarEncode(s)
	got, err := g.ScalarDecode(enc)
	if err != nil {
		t.Fatalf("ScalarDecode: %v", err)
	}
	if !ScalarEqual(s, got) {
		t.Fatalf("round trip mismatch")
	}
}

func TestScalarFromIntSign(t *testing.T) {
	g := New()

	pos := g.ScalarFromInt(7)
	neg := g.ScalarFromInt(-7)
	sum := g.AddScalar(pos, neg)
	if !ScalarEqual(sum, g.ZeroScalar()) {
		t.Fatalf("ScalarFromInt(7) + ScalarFromInt(-7) should be zero")
	}
}

func TestHashToGroupIsDeterministicAndDistinctPerLabel(t *testing.T) {
	g := New()
	a := g.HashToGroup([]byte("barcode-42"))
	b := g.HashToGroup([]byte("barcode-42"))
	c := g.HashToGroup([]byte("barcode-43"))

	if !PointEqual(a, b) {
		t.Fatalf("HashToGroup must be deterministic for the same label")
	}
	if PointEqual(a, c) {
		t.Fatalf("HashToGroup must differ across labels")
	}
}

func TestHashToScalarDeterministic(t *testing.T) {
	g := New()
	a := g.HashToScalar([]byte("x"), []byte("y"))
	b := g.HashToScalar([]byte("x"), []byte("y"))
	c := g.HashToScalar([]byte("x"), []byte("z"))

	if !ScalarEqual(a, b) {
		t.Fatalf("HashToScalar must be deterministic")
	}
	if ScalarEqual(a, c) {
		t.Fatalf("HashToScalar must depend on every part")
	}
}
