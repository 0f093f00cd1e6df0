// Package brep is an in-process software backend for the kernel capability
// contract. It represents faces as planar polygons and solids as triangle
// meshes, which is sufficient for prism-based modeling, visualization, and
// export. Boolean combination is not implemented; those calls fail with
// kernel.ErrUnsupported as the contract allows.
package brep

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/internal/kernel"
)

const (
	// chainTol is the vertex coincidence tolerance used when chaining edges
	// into a wire.
	chainTol = 1e-6

	// circleSegments is the polyline resolution for full circle edges.
	circleSegments = 48

	// arcSegmentsPerRadian controls polyline resolution for trimmed arcs.
	arcSegmentsPerRadian = 8
)

// Backend implements kernel.Kernel with pure-Go mesh geometry.
type Backend struct{}

// New returns a software kernel backend.
func New() *Backend { return &Backend{} }

var _ kernel.Kernel = (*Backend)(nil)

// edge is a discretized bounded curve.
type edge struct {
	points []geom.Vec3
	closed bool
}

func (e *edge) Closed() bool { return e.closed }

func (e *edge) start() geom.Vec3 { return e.points[0] }
func (e *edge) end() geom.Vec3   { return e.points[len(e.points)-1] }

func (e *edge) reversed() *edge {
	rev := make([]geom.Vec3, len(e.points))
	for i, p := range e.points {
		rev[len(e.points)-1-i] = p
	}
	return &edge{points: rev, closed: e.closed}
}

// wire is a chained polyline boundary.
type wire struct {
	points []geom.Vec3
	closed bool
}

func (w *wire) Closed() bool { return w.closed }

// face is a planar polygon region. The loop is stored open (the closing
// segment back to loop[0] is implicit) with canonical forward orientation.
type face struct {
	loop    []geom.Vec3
	normal  geom.Vec3
	forward bool
}

func (f *face) Forward() bool { return f.forward }

// EdgeFromPoints builds a straight edge between two world points.
func (b *Backend) EdgeFromPoints(p1, p2 geom.Vec3) (kernel.Edge, error) {
	if p1.Sub(p2).Length() < chainTol {
		return nil, fmt.Errorf("brep: degenerate edge, endpoints coincide at (%g, %g, %g)", p1.X, p1.Y, p1.Z)
	}
	return &edge{points: []geom.Vec3{p1, p2}}, nil
}

// EdgeFromCircle builds a closed circular edge on the given frame.
func (b *Backend) EdgeFromCircle(frame kernel.Frame, radius float64) (kernel.Edge, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("brep: circle radius must be positive, got %g", radius)
	}
	pts := sampleArc(frame, radius, 0, 2*math.Pi, circleSegments)
	return &edge{points: pts, closed: true}, nil
}

// EdgeFromArc builds a trimmed circular arc between two angles on the given
// frame. Angles are in radians measured from the frame X axis.
func (b *Backend) EdgeFromArc(frame kernel.Frame, radius, startAngle, endAngle float64) (kernel.Edge, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("brep: arc radius must be positive, got %g", radius)
	}
	sweep := endAngle - startAngle
	if math.Abs(sweep) < geom.Epsilon {
		return nil, errors.New("brep: degenerate arc, zero sweep angle")
	}
	n := int(math.Ceil(math.Abs(sweep) * arcSegmentsPerRadian))
	if n < 4 {
		n = 4
	}
	pts := sampleArc(frame, radius, startAngle, endAngle, n)
	return &edge{points: pts}, nil
}

func sampleArc(frame kernel.Frame, radius, a0, a1 float64, segments int) []geom.Vec3 {
	pts := make([]geom.Vec3, 0, segments+1)
	for i := 0; i <= segments; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(segments)
		offset := frame.XAxis.Scale(radius * math.Cos(a)).Add(frame.YAxis.Scale(radius * math.Sin(a)))
		pts = append(pts, frame.Origin.Add(offset))
	}
	return pts
}

// WireFromEdges chains edges into a boundary polyline. Edges are consumed in
// order; an edge is appended when one of its endpoints coincides with the
// current chain end (reversing it when needed). Edges that cannot be chained
// are skipped with a warning rather than failing the whole wire, matching the
// tolerant wire-assembly policy of the modeling core.
func (b *Backend) WireFromEdges(edges []kernel.Edge) (kernel.Wire, error) {
	if len(edges) == 0 {
		return nil, errors.New("brep: cannot build wire from zero edges")
	}

	var chain []geom.Vec3
	skipped := 0
	for i, ke := range edges {
		e, ok := ke.(*edge)
		if !ok {
			return nil, fmt.Errorf("brep: edge %d is not a brep edge", i)
		}
		if e.closed {
			// A closed edge is a complete loop on its own; it can only be
			// the sole member of a wire.
			if len(edges) == 1 {
				return &wire{points: e.points, closed: true}, nil
			}
			skipped++
			continue
		}
		switch {
		case len(chain) == 0:
			chain = append(chain, e.points...)
		case chain[len(chain)-1].Sub(e.start()).Length() < chainTol:
			chain = append(chain, e.points[1:]...)
		case chain[len(chain)-1].Sub(e.end()).Length() < chainTol:
			chain = append(chain, e.reversed().points[1:]...)
		default:
			log.Warn().Int("edge", i).Msg("wire builder: edge does not connect to chain, skipping")
			skipped++
		}
	}

	if len(chain) < 2 {
		return nil, errors.New("brep: no connectable edges for wire")
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("wire builder: wire assembled with skipped edges")
	}

	closed := chain[0].Sub(chain[len(chain)-1]).Length() < chainTol
	if closed {
		chain = chain[:len(chain)-1]
	}
	return &wire{points: chain, closed: closed}, nil
}

// FaceFromWire builds a planar polygon face from a wire. Open wires are
// closed implicitly by the segment from the last vertex back to the first;
// the modeling core documents this as part of its wire-assembly limitations.
func (b *Backend) FaceFromWire(kw kernel.Wire) (kernel.Face, error) {
	w, ok := kw.(*wire)
	if !ok {
		return nil, errors.New("brep: wire is not a brep wire")
	}
	loop := dedupeLoop(w.points)
	if len(loop) < 3 {
		return nil, fmt.Errorf("brep: face needs at least 3 boundary vertices, got %d", len(loop))
	}

	normal := newellNormal(loop)
	if normal.Length() < geom.Epsilon {
		return nil, errors.New("brep: face boundary is degenerate (zero area)")
	}
	if !w.closed {
		log.Debug().Int("vertices", len(loop)).Msg("face builder: closing open wire implicitly")
	}
	return &face{loop: loop, normal: normal.Normalized(), forward: true}, nil
}

// dedupeLoop removes consecutive duplicate vertices and a duplicated closing
// vertex.
func dedupeLoop(pts []geom.Vec3) []geom.Vec3 {
	out := make([]geom.Vec3, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].Sub(p).Length() < chainTol {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 && out[0].Sub(out[len(out)-1]).Length() < chainTol {
		out = out[:len(out)-1]
	}
	return out
}

// newellNormal computes the area-weighted polygon normal (Newell's method).
func newellNormal(loop []geom.Vec3) geom.Vec3 {
	var n geom.Vec3
	for i, p := range loop {
		q := loop[(i+1)%len(loop)]
		n.X += (p.Y - q.Y) * (p.Z + q.Z)
		n.Y += (p.Z - q.Z) * (p.X + q.X)
		n.Z += (p.X - q.X) * (p.Y + q.Y)
	}
	return n.Scale(0.5)
}

// Union is not implemented by the software backend.
func (b *Backend) Union(a, c kernel.Shape) (kernel.Shape, error) {
	return nil, fmt.Errorf("%w: boolean union", kernel.ErrUnsupported)
}

// Subtract is not implemented by the software backend.
func (b *Backend) Subtract(a, c kernel.Shape) (kernel.Shape, error) {
	return nil, fmt.Errorf("%w: boolean subtract", kernel.ErrUnsupported)
}

// Intersect is not implemented by the software backend.
func (b *Backend) Intersect(a, c kernel.Shape) (kernel.Shape, error) {
	return nil, fmt.Errorf("%w: boolean intersect", kernel.ErrUnsupported)
}
