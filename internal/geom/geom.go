// Package geom provides the small 2D/3D vector types shared by the sketch
// and kernel layers.
package geom

import "math"

// Epsilon is the tolerance used for degeneracy checks (parallel lines,
// zero-length directions). Matches the solver tolerance of the modeling core.
const Epsilon = 1e-10

// Point2D is a point or displacement in sketch (plane-local) coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point2D) Add(q Point2D) Point2D { return Point2D{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point2D) Sub(q Point2D) Point2D { return Point2D{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by s.
func (p Point2D) Scale(s float64) Point2D { return Point2D{p.X * s, p.Y * s} }

// Dot returns the dot product of p and q taken as vectors.
func (p Point2D) Dot(q Point2D) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the 2D cross product (z component) of p and q.
func (p Point2D) Cross(q Point2D) float64 { return p.X*q.Y - p.Y*q.X }

// Length returns the magnitude of p taken as a vector.
func (p Point2D) Length() float64 { return math.Hypot(p.X, p.Y) }

// Distance returns the distance between p and q.
func (p Point2D) Distance(q Point2D) float64 { return p.Sub(q).Length() }

// Normalized returns p scaled to unit length. The zero vector is returned
// unchanged so callers must check degeneracy with Length first.
func (p Point2D) Normalized() Point2D {
	l := p.Length()
	if l < Epsilon {
		return Point2D{}
	}
	return Point2D{p.X / l, p.Y / l}
}

// Vec3 is a point or vector in world coordinates.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Neg returns -v.
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Cross returns the cross product of v and w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the magnitude of v.
func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

// Normalized returns v scaled to unit length, or the zero vector when v is
// degenerate.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l < Epsilon {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// NearEqual reports whether a and b differ by less than tol in every
// component.
func (v Vec3) NearEqual(w Vec3, tol float64) bool {
	return math.Abs(v.X-w.X) < tol && math.Abs(v.Y-w.Y) < tol && math.Abs(v.Z-w.Z) < tol
}
