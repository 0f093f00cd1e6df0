// Package sketch implements the 2D modeling layer: oriented sketch planes,
// the sketch element variants, fillet and chamfer tangency geometry, and the
// wire/face assembly policy that turns a sketch into kernel topology.
package sketch

import (
	"fmt"
	"math"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/internal/kernel"
	"github.com/latticecad/lattice/pkg/model"
)

// Plane is an oriented 2D working surface embedded in 3D: an origin, a unit
// normal, and two orthonormal in-plane axes. Planes are immutable after
// construction and shared read-only by every sketch built on them.
type Plane struct {
	id     string
	typ    model.PlaneType
	origin geom.Vec3
	normal geom.Vec3
	xAxis  geom.Vec3
	yAxis  geom.Vec3
}

// NewCanonicalPlane builds one of the three world-aligned planes at the
// given origin.
func NewCanonicalPlane(id string, typ model.PlaneType, origin geom.Vec3) (*Plane, error) {
	var normal, xAxis geom.Vec3
	switch typ {
	case model.PlaneXY:
		normal, xAxis = geom.Vec3{Z: 1}, geom.Vec3{X: 1}
	case model.PlaneXZ:
		normal, xAxis = geom.Vec3{Y: 1}, geom.Vec3{X: 1}
	case model.PlaneYZ:
		normal, xAxis = geom.Vec3{X: 1}, geom.Vec3{Y: 1}
	default:
		return nil, fmt.Errorf("%w: plane type %q is not canonical", model.ErrInvalidParameters, typ)
	}
	return &Plane{
		id:     id,
		typ:    typ,
		origin: origin,
		normal: normal,
		xAxis:  xAxis,
		yAxis:  normal.Cross(xAxis),
	}, nil
}

// NewCustomPlane builds a plane from an origin and normal. The in-plane X
// axis is derived by crossing the normal with the world Z axis, falling back
// to the world X axis when the normal is near-parallel to Z, so the axis is
// never degenerate.
func NewCustomPlane(id string, origin, normal geom.Vec3) (*Plane, error) {
	n := normal.Normalized()
	if n.Length() < geom.Epsilon {
		return nil, fmt.Errorf("%w: plane normal is degenerate", model.ErrInvalidParameters)
	}

	ref := geom.Vec3{Z: 1}
	if math.Abs(n.Z) >= 0.9 {
		ref = geom.Vec3{X: 1}
	}
	xAxis := n.Cross(ref).Normalized()

	return &Plane{
		id:     id,
		typ:    model.PlaneCustom,
		origin: origin,
		normal: n,
		xAxis:  xAxis,
		yAxis:  n.Cross(xAxis),
	}, nil
}

// ID returns the plane identifier.
func (p *Plane) ID() string { return p.id }

// Type returns the plane orientation type.
func (p *Plane) Type() model.PlaneType { return p.typ }

// Origin returns the plane origin in world coordinates.
func (p *Plane) Origin() geom.Vec3 { return p.origin }

// Normal returns the unit plane normal.
func (p *Plane) Normal() geom.Vec3 { return p.normal }

// UAxis returns the in-plane unit X axis.
func (p *Plane) UAxis() geom.Vec3 { return p.xAxis }

// VAxis returns the in-plane unit Y axis.
func (p *Plane) VAxis() geom.Vec3 { return p.yAxis }

// To3D maps a plane-local point to world coordinates.
func (p *Plane) To3D(pt geom.Point2D) geom.Vec3 {
	return p.origin.Add(p.xAxis.Scale(pt.X)).Add(p.yAxis.Scale(pt.Y))
}

// To2D projects a world point onto the plane axes. The result is a
// projection, not a nearest-point solve: off-plane input loses its normal
// component.
func (p *Plane) To2D(v geom.Vec3) geom.Point2D {
	d := v.Sub(p.origin)
	return geom.Point2D{X: d.Dot(p.xAxis), Y: d.Dot(p.yAxis)}
}

// Frame returns the kernel placement of the plane.
func (p *Plane) Frame() kernel.Frame {
	return kernel.Frame{Origin: p.origin, XAxis: p.xAxis, YAxis: p.yAxis, Normal: p.normal}
}

// FrameAt returns the kernel placement translated to the world position of a
// plane-local point, keeping the plane orientation. Used for circle and arc
// edges centered away from the plane origin.
func (p *Plane) FrameAt(center geom.Point2D) kernel.Frame {
	return kernel.Frame{Origin: p.To3D(center), XAxis: p.xAxis, YAxis: p.yAxis, Normal: p.normal}
}
