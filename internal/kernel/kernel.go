// Package kernel defines the capability contract the modeling core consumes
// for solid construction, topology building, and triangulation. The core
// never assumes a particular backend; every call may fail and failures are
// reported to the caller as ordinary errors.
package kernel

import (
	"errors"

	"github.com/latticecad/lattice/internal/geom"
)

// ErrUnsupported is returned by backends for capability calls they do not
// implement. Callers must treat it like any other kernel failure.
var ErrUnsupported = errors.New("kernel: operation not supported by backend")

// Frame is an oriented placement for circle and arc construction: an origin
// with unit in-plane axes and a unit normal.
type Frame struct {
	Origin geom.Vec3
	XAxis  geom.Vec3
	YAxis  geom.Vec3
	Normal geom.Vec3
}

// MeshData is the triangulated boundary of a shape. Vertices and Normals are
// packed xyz triples; Faces holds triangle vertex indices in groups of three.
type MeshData struct {
	Vertices []float64 `json:"vertices"`
	Faces    []int     `json:"faces"`
	Normals  []float64 `json:"normals"`

	VertexCount int     `json:"vertex_count"`
	FaceCount   int     `json:"face_count"`
	Quality     float64 `json:"tessellation_quality"`
}

// Edge is a bounded curve handle produced by a backend.
type Edge interface {
	// Closed reports whether the edge is inherently closed (a full circle).
	Closed() bool
}

// Wire is an ordered chain of edges forming a boundary curve.
type Wire interface {
	// Closed reports whether the chain returns to its starting vertex.
	Closed() bool
}

// Face is a bounded surface region enclosed by a closed wire.
type Face interface {
	// Forward reports whether the face carries canonical orientation.
	Forward() bool
}

// Shape is an opaque solid handle.
type Shape interface {
	// Bounds returns the axis-aligned bounding box of the shape.
	Bounds() (min, max geom.Vec3)
}

// Kernel is the geometry capability provider consumed by the modeling core.
type Kernel interface {
	// Primitive construction.
	MakeBox(pos geom.Vec3, dx, dy, dz float64) (Shape, error)
	MakeCylinder(pos geom.Vec3, radius, height float64) (Shape, error)
	MakeSphere(pos geom.Vec3, radius float64) (Shape, error)

	// Boolean combination.
	Union(a, b Shape) (Shape, error)
	Subtract(a, b Shape) (Shape, error)
	Intersect(a, b Shape) (Shape, error)

	// Topology building.
	EdgeFromPoints(p1, p2 geom.Vec3) (Edge, error)
	EdgeFromCircle(frame Frame, radius float64) (Edge, error)
	EdgeFromArc(frame Frame, radius, startAngle, endAngle float64) (Edge, error)
	WireFromEdges(edges []Edge) (Wire, error)
	FaceFromWire(w Wire) (Face, error)

	// Sweeping.
	Prism(f Face, vec geom.Vec3) (Shape, error)

	// Analysis.
	Tessellate(s Shape, deflection float64) (*MeshData, error)
	Validate(s Shape) bool
}
