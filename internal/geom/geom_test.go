package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint2DArithmetic(t *testing.T) {
	p := Point2D{3, 4}
	q := Point2D{1, -2}

	assert.Equal(t, Point2D{4, 2}, p.Add(q))
	assert.Equal(t, Point2D{2, 6}, p.Sub(q))
	assert.Equal(t, Point2D{6, 8}, p.Scale(2))
	assert.InDelta(t, 5.0, p.Length(), 1e-12)
	assert.InDelta(t, -5.0, p.Dot(q), 1e-12)
	assert.InDelta(t, -10.0, p.Cross(q), 1e-12)
}

func TestPoint2DNormalized(t *testing.T) {
	n := Point2D{3, 4}.Normalized()
	assert.InDelta(t, 1.0, n.Length(), 1e-12)
	assert.InDelta(t, 0.6, n.X, 1e-12)
	assert.InDelta(t, 0.8, n.Y, 1e-12)

	// Degenerate input stays zero instead of producing NaN.
	z := Point2D{}.Normalized()
	assert.Equal(t, Point2D{}, z)
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	z := x.Cross(y)
	assert.True(t, z.NearEqual(Vec3{0, 0, 1}, 1e-12))

	// Anti-commutative.
	assert.True(t, y.Cross(x).NearEqual(Vec3{0, 0, -1}, 1e-12))

	// Parallel vectors cross to zero.
	assert.InDelta(t, 0.0, x.Cross(Vec3{2, 0, 0}).Length(), 1e-12)
}

func TestVec3Normalized(t *testing.T) {
	v := Vec3{0, 3, 4}.Normalized()
	assert.InDelta(t, 1.0, v.Length(), 1e-12)

	assert.Equal(t, Vec3{}, Vec3{}.Normalized())
}

func TestVec3DotOrthogonal(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := a.Cross(Vec3{0, 0, 1})
	assert.InDelta(t, 0.0, a.Dot(b), 1e-12)
	assert.InDelta(t, math.Sqrt(14), a.Length(), 1e-12)
}
