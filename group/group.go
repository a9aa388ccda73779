// Package group wraps the prime-order group this module builds every
// cryptographic primitive on top of. It is a thin façade over
// go.dedis.ch/kyber/v3's edwards25519 suite: point/scalar encode-decode,
// the two nothing-up-my-sleeve generators H and U, and the hash-to-scalar
// routine the Sigma-protocol engine uses for Fiat-Shamir challenges.
package group

import (
	"bytes"
	"crypto/sha512"
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
	"go.dedis.ch/kyber/v3/util/random"
)

// EncodedLen is the fixed wire size of a marshaled point or scalar.
const EncodedLen = 32

// Point and Scalar alias the suite's element types so callers outside this
// package never need to import kyber directly.
type (
	Point  = kyber.Point
	Scalar = kyber.Scalar
)

// Group bundles the suite together with the two memoized generators H and
// U used by the protocol and Sigma-protocol components.
type Group struct {
	suite *edwards25519.SuiteEd25519
	h     kyber.Point
	u     kyber.Point
}

// New constructs the group and derives its fixed generators.
func New() *Group {
	suite := edwards25519.NewBlakeSHA256Ed25519()
	return &Group{
		suite: suite,
		h:     deriveGenerator(suite, "base h"),
		u:     deriveGenerator(suite, "base u"),
	}
}

// deriveGenerator maps a label to a curve point deterministically, with no
// discrete-log relation to G known to anyone: the seed is a wide SHA-512
// digest of the label, fed through kyber's random-stream machinery into the
// suite's elligator-style Pick.
func deriveGenerator(suite *edwards25519.SuiteEd25519, label string) kyber.Point {
	digest := sha512.Sum512([]byte("ptcore generator: " + label))
	stream := random.New(bytes.NewReader(digest[:]))
	return suite.Point().Pick(stream)
}

// Base returns the group's fixed generator G.
func (g *Group) Base() kyber.Point {
	return g.suite.Point().Base()
}

// H returns the fixed generator used for per-transaction masking.
func (g *Group) H() kyber.Point {
	return g.h.Clone()
}

// U returns the fixed generator used for blinding in the zk_tx and
// zk_settle commitments.
func (g *Group) U() kyber.Point {
	return g.u.Clone()
}

// Identity returns the group's neutral element.
func (g *Group) Identity() kyber.Point {
	return g.suite.Point().Null()
}

// HashToGroup derives an arbitrary generator from a caller-supplied label,
// using the same construction as H and U. Used for the malicious variant's
// per-transaction base point g := hash_to_group(base).
func (g *Group) HashToGroup(label []byte) kyber.Point {
	digest := sha512.Sum512(append([]byte("ptcore generator: "), label...))
	stream := random.New(bytes.NewReader(digest[:]))
	return g.suite.Point().Pick(stream)
}

// HashToScalar reduces the SHA-512 digest of the concatenated parts modulo
// the group order. Used for every Fiat-Shamir challenge in package zkp.
func (g *Group) HashToScalar(parts ...[]byte) kyber.Scalar {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return g.suite.Scalar().SetBytes(h.Sum(nil))
}

// RandomScalar samples a uniformly random scalar.
func (g *Group) RandomScalar() kyber.Scalar {
	return g.suite.Scalar().Pick(random.New())
}

// ScalarFromInt encodes a signed transaction amount as a scalar: x maps to
// x mod q for x >= 0 and to -|x| mod q for x < 0, matching the signed
// amounts carried by zk_tx and zk_settle.
func (g *Group) ScalarFromInt(x int64) kyber.Scalar {
	abs := x
	neg := false
	if abs < 0 {
		abs = -abs
		neg = true
	}
	s := g.suite.Scalar().SetInt64(abs)
	if neg {
		s = g.suite.Scalar().Neg(s)
	}
	return s
}

// ZeroScalar returns the additive identity.
func (g *Group) ZeroScalar() kyber.Scalar {
	return g.suite.Scalar().Zero()
}

// Add returns a + b.
func (g *Group) Add(a, b kyber.Point) kyber.Point {
	return g.suite.Point().Add(a, b)
}

// Sub returns a - b.
func (g *Group) Sub(a, b kyber.Point) kyber.Point {
	return g.suite.Point().Sub(a, b)
}

// Neg returns -a.
func (g *Group) Neg(a kyber.Point) kyber.Point {
	return g.suite.Point().Neg(a)
}

// Mul returns s*p, or s*G when p is nil.
func (g *Group) Mul(s kyber.Scalar, p kyber.Point) kyber.Point {
	return g.suite.Point().Mul(s, p)
}

// AddScalar returns a + b.
func (g *Group) AddScalar(a, b kyber.Scalar) kyber.Scalar {
	return g.suite.Scalar().Add(a, b)
}

// SubScalar returns a - b.
func (g *Group) SubScalar(a, b kyber.Scalar) kyber.Scalar {
	return g.suite.Scalar().Sub(a, b)
}

// MulScalar returns a * b.
func (g *Group) MulScalar(a, b kyber.Scalar) kyber.Scalar {
	return g.suite.Scalar().Mul(a, b)
}

// NegScalar returns -a.
func (g *Group) NegScalar(a kyber.Scalar) kyber.Scalar {
	return g.suite.Scalar().Neg(a)
}

// NewScalar returns a fresh, zero-valued scalar of this group's field.
func (g *Group) NewScalar() kyber.Scalar {
	return g.suite.Scalar().Zero()
}

// NewPoint returns a fresh, identity-valued point of this group.
func (g *Group) NewPoint() kyber.Point {
	return g.suite.Point().Null()
}

// PointEncode serializes a point to its fixed 32-byte wire form.
func PointEncode(p kyber.Point) [EncodedLen]byte {
	var out [EncodedLen]byte
	raw, err := p.MarshalBinary()
	if err != nil {
		// kyber's edwards25519 Point.MarshalBinary never fails for a
		// well-formed curve point produced by this package.
		panic(fmt.Sprintf("group: point encode: %v", err))
	}
	copy(out[:], raw)
	return out
}

// PointDecode parses a point from its fixed 32-byte wire form.
func (g *Group) PointDecode(b [EncodedLen]byte) (kyber.Point, error) {
	p := g.suite.Point()
	if err := p.UnmarshalBinary(b[:]); err != nil {
		return nil, fmt.Errorf("group: point decode: %w", err)
	}
	return p, nil
}

// ScalarEncode serializes a scalar to its fixed 32-byte wire form.
func ScalarEncode(s kyber.Scalar) [EncodedLen]byte {
	var out [EncodedLen]byte
	raw, err := s.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("group: scalar encode: %v", err))
	}
	copy(out[:], raw)
	return out
}

// ScalarDecode parses a scalar from its fixed 32-byte wire form.
func (g *Group) ScalarDecode(b [EncodedLen]byte) (kyber.Scalar, error) {
	s := g.suite.Scalar()
	if err := s.UnmarshalBinary(b[:]); err != nil {
		return nil, fmt.Errorf("group: scalar decode: %w", err)
	}
	return s, nil
}

// ScalarEqual reports whether two scalars hold the same value.
func ScalarEqual(a, b kyber.Scalar) bool {
	return a.Equal(b)
}

// PointEqual reports whether two points hold the same value.
func PointEqual(a, b kyber.Point) bool {
	return a.Equal(b)
}
