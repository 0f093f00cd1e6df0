package session

import (
	"fmt"
	"math"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/internal/sketch"
	"github.com/latticecad/lattice/pkg/model"
)

// Visualization payloads are lightweight 3D point sets for client-side
// rendering, cheaper than a full tessellation round trip. Curves come back
// as polylines: circles at 16 segments, arcs and fillets at 8.

const (
	circleVizSegments = 16
	arcVizSegments    = 8
	planeVizSize      = 50.0
)

// PlaneViz describes a sketch plane for rendering: placement plus a square
// display extent.
type PlaneViz struct {
	ID     string     `json:"plane_id"`
	Type   string     `json:"type"`
	Origin [3]float64 `json:"origin"`
	Normal [3]float64 `json:"normal"`
	UAxis  [3]float64 `json:"u_axis"`
	VAxis  [3]float64 `json:"v_axis"`
	Size   float64    `json:"size"`
}

// ElementViz is one sketch element as a 3D polyline.
type ElementViz struct {
	ID     string       `json:"element_id"`
	Type   string       `json:"type"`
	Points [][3]float64 `json:"points"`
	Closed bool         `json:"closed"`
}

// SketchViz is a whole sketch: its plane binding and every element polyline.
type SketchViz struct {
	ID       string       `json:"sketch_id"`
	PlaneID  string       `json:"plane_id"`
	Elements []ElementViz `json:"elements"`
}

// PlaneVisualization returns the rendering payload for a stored plane.
func (e *Engine) PlaneVisualization(planeID string) (*PlaneViz, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.planes[planeID]
	if !ok {
		return nil, fmt.Errorf("%w: plane %q", model.ErrNotFound, planeID)
	}
	return &PlaneViz{
		ID:     p.ID(),
		Type:   string(p.Type()),
		Origin: packVec(p.Origin()),
		Normal: packVec(p.Normal()),
		UAxis:  packVec(p.UAxis()),
		VAxis:  packVec(p.VAxis()),
		Size:   planeVizSize,
	}, nil
}

// SketchVisualization returns rendering payloads for every element of a
// stored sketch.
func (e *Engine) SketchVisualization(sketchID string) (*SketchViz, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return nil, err
	}

	viz := &SketchViz{ID: sk.ID(), PlaneID: sk.Plane().ID()}
	for _, el := range sk.Elements() {
		viz.Elements = append(viz.Elements, elementViz(sk.Plane(), el))
	}
	return viz, nil
}

// ElementVisualization returns the rendering payload for one element.
func (e *Engine) ElementVisualization(sketchID, elementID string) (*ElementViz, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return nil, err
	}
	el, err := sk.Element(elementID)
	if err != nil {
		return nil, err
	}
	viz := elementViz(sk.Plane(), el)
	return &viz, nil
}

// elementViz renders one element into plane-mapped 3D points.
func elementViz(p *sketch.Plane, el sketch.Element) ElementViz {
	viz := ElementViz{ID: el.ID(), Type: string(el.Type())}

	switch v := el.(type) {
	case *sketch.Line:
		viz.Points = [][3]float64{packPoint(p, v.Start), packPoint(p, v.End)}
	case *sketch.Circle:
		viz.Points = circlePolyline(p, v.Center, v.Radius, 0, 2*math.Pi, circleVizSegments)
		viz.Closed = true
	case *sketch.Arc:
		a0, a1 := arcSpan(v.Center, v.Start, v.End)
		viz.Points = circlePolyline(p, v.Center, v.Radius, a0, a1, arcVizSegments)
	case *sketch.Rectangle:
		corners := v.Corners()
		for _, c := range corners {
			viz.Points = append(viz.Points, packPoint(p, c))
		}
		viz.Points = append(viz.Points, packPoint(p, corners[0]))
		viz.Closed = true
	case *sketch.Fillet:
		a0, a1 := arcSpan(v.Center, v.Tangent1, v.Tangent2)
		viz.Points = circlePolyline(p, v.Center, v.Radius, a0, a1, arcVizSegments)
	case *sketch.Chamfer:
		viz.Points = [][3]float64{packPoint(p, v.Start), packPoint(p, v.End)}
	}
	return viz
}

// arcSpan returns start/end angles for a counterclockwise arc from pt1 to
// pt2 around center.
func arcSpan(center, pt1, pt2 geom.Point2D) (float64, float64) {
	v1 := pt1.Sub(center)
	v2 := pt2.Sub(center)
	a0 := math.Atan2(v1.Y, v1.X)
	a1 := math.Atan2(v2.Y, v2.X)
	if a1 <= a0 {
		a1 += 2 * math.Pi
	}
	return a0, a1
}

// circlePolyline samples a circular span on the plane into 3D points.
func circlePolyline(p *sketch.Plane, center geom.Point2D, radius, a0, a1 float64, segments int) [][3]float64 {
	pts := make([][3]float64, 0, segments+1)
	for i := 0; i <= segments; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(segments)
		pt := geom.Point2D{
			X: center.X + radius*math.Cos(a),
			Y: center.Y + radius*math.Sin(a),
		}
		pts = append(pts, packPoint(p, pt))
	}
	return pts
}

func packPoint(p *sketch.Plane, pt geom.Point2D) [3]float64 {
	return packVec(p.To3D(pt))
}

func packVec(v geom.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
