// Package bsgs recovers small discrete logarithms base G via baby-step
// giant-step, used at settlement time to turn a revealed balance point
// back into a signed integer amount.
package bsgs

import (
	"errors"
	"math"
	"sync"

	"github.com/loyalty/ptcore/group"
)

// ErrOutOfRange is returned when a point's discrete log (positive or
// negative) exceeds the table's configured bound.
var ErrOutOfRange = errors.New("bsgs: discrete log out of range")

// Table is a baby-step giant-step discrete-log table for base G, bounded
// to [-maxPoints, maxPoints]. It is built lazily on first use and then
// immutable, so repeated lookups are race-free without locking.
type Table struct {
	g         *group.Group
	maxPoints uint64
	step      uint64 // ceil(sqrt(2*maxPoints+1))

	once sync.Once
	baby map[[32]byte]int64 // point_encode(i*G) -> i, for i in [0, step)
}

// NewTable constructs a table bounded to maxPoints; it is not computed
// until the first Dlog call.
func NewTable(g *group.Group, maxPoints uint64) *Table {
	step := uint64(math.Ceil(math.Sqrt(float64(2*maxPoints + 1))))
	if step == 0 {
		step = 1
	}
	return &Table{g: g, maxPoints: maxPoints, step: step}
}

func (t *Table) ensureBuilt() {
	t.once.Do(func() {
		baby := make(map[[32]byte]int64, t.step)
		acc := t.g.Identity()
		base := t.g.Base()
		for i := uint64(0); i < t.step; i++ {
			baby[group.PointEncode(acc)] = int64(i)
			acc = t.g.Add(acc, base)
		}
		t.baby = baby
	})
}

// Dlog recovers x such that p == x*G, for x in [-maxPoints, maxPoints].
// Returns ErrOutOfRange if no such x exists within the table's bound.
func (t *Table) Dlog(p group.Point) (int64, error) {
	t.ensureBuilt()

	base := t.g.Base()
	giantStep := t.g.Mul(t.g.ScalarFromInt(int64(t.step)), base)
	negGiant := t.g.Neg(giantStep)

	cur := t.g.Add(p, t.g.Mul(t.g.ScalarFromInt(int64(t.maxPoints)), base))
	for j := uint64(0); ; j++ {
		if i, ok := t.baby[group.PointEncode(cur)]; ok {
			x := int64(j)*int64(t.step) + i - int64(t.maxPoints)
			if x < -int64(t.maxPoints) || x > int64(t.maxPoints) {
				break
			}
			return x, nil
		}
		if uint64(j)*t.step > 2*t.maxPoints {
			break
		}
		cur = t.g.Add(cur, negGiant)
	}
	return 0, ErrOutOfRange
}
