package bsgs

import (
	"testing"

	"github.com/loyalty/ptcore/group"
)

func TestDlogRecoversSmallPositiveAndNegative(t *testing.T) {
	g := group.New()
	table := NewTable(g, 1000)

	for _, x := range []int64{0, 1, 7, 999, -1, -7, -999, 1000, -1000} {
		p := g.Mul(g.ScalarFromInt(x), g.Base())
		got, err := table.Dlog(p)
		if err != nil {
			t.Fatalf("Dlog(%d): %v", x, err)
		}
		if got != x {
			t.Fatalf("Dlog(%d) = %d", x, got)
		}
	}
}

func TestDlogOutOfRange(t *testing.T) {
	g := group.New()
	table := NewTable(g, 50)

	p := g.Mul(g.ScalarFromInt(51), g.Base())
	if _, err := table.Dlog(p); err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestTableIsReusableAcrossLookups(t *testing.T) {
	g := group.New()
	table := NewTable(g, 200)

	for i := 0; i < 10; i++ {
		p := g.Mul(g.ScalarFromInt(int64(i)), g.Base())
		got, err := table.Dlog(p)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if got != int64(i) {
			t.Fatalf("iteration %d: got %d", i, got)
		}
	}
}
