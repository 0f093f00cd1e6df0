package sketch

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/internal/kernel"
	"github.com/latticecad/lattice/pkg/model"
)

// CreateWire builds a boundary curve from the sketch elements in insertion
// order through the kernel's edge primitives.
//
// When the sketch contains fillets the assembly policy changes: elements
// referenced by any fillet are excluded, the remaining elements are added in
// original order, and the fillet arcs follow. The excluded originals are NOT
// trimmed to their tangent points first, so a filleted profile generally
// yields an open or overlapping boundary. This is a known limitation carried
// over deliberately; see the repository design notes before "fixing" it.
func (s *Sketch) CreateWire(k kernel.Kernel) (kernel.Wire, error) {
	if len(s.elements) == 0 {
		return nil, fmt.Errorf("%w: sketch %q has no elements", model.ErrGeometricFailure, s.id)
	}

	hasFillets := false
	for _, e := range s.elements {
		if e.Type() == model.ElementFillet {
			hasFillets = true
			break
		}
	}

	var edges []kernel.Edge
	if !hasFillets {
		for _, e := range s.elements {
			edges = append(edges, s.elementEdges(k, e)...)
		}
	} else {
		filleted := make(map[string]bool)
		for _, e := range s.elements {
			if f, ok := e.(*Fillet); ok {
				filleted[f.Refs[0]] = true
				filleted[f.Refs[1]] = true
			}
		}
		for _, e := range s.elements {
			if e.Type() != model.ElementFillet && !filleted[e.ID()] {
				edges = append(edges, s.elementEdges(k, e)...)
			}
		}
		for _, e := range s.elements {
			if e.Type() == model.ElementFillet {
				edges = append(edges, s.elementEdges(k, e)...)
			}
		}
		log.Debug().Str("sketch", s.id).Int("edges", len(edges)).Msg("assembling filleted wire")
	}

	if len(edges) == 0 {
		return nil, fmt.Errorf("%w: no usable edges in sketch %q", model.ErrGeometricFailure, s.id)
	}

	w, err := k.WireFromEdges(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: wire assembly: %v", model.ErrGeometricFailure, err)
	}
	return w, nil
}

// elementEdges builds the kernel edges for one element. Rectangles expand to
// four explicit corner edges; a fillet whose arc construction fails falls
// back to the straight segment between its tangent points. Elements whose
// edge construction fails are skipped with a warning so one bad element does
// not poison the whole wire.
func (s *Sketch) elementEdges(k kernel.Kernel, e Element) []kernel.Edge {
	switch el := e.(type) {
	case *Line:
		edge, err := k.EdgeFromPoints(s.plane.To3D(el.Start), s.plane.To3D(el.End))
		if err != nil {
			log.Warn().Str("element", el.id).Err(err).Msg("skipping line edge")
			return nil
		}
		return []kernel.Edge{edge}

	case *Circle:
		edge, err := k.EdgeFromCircle(s.plane.FrameAt(el.Center), el.Radius)
		if err != nil {
			log.Warn().Str("element", el.id).Err(err).Msg("skipping circle edge")
			return nil
		}
		return []kernel.Edge{edge}

	case *Arc:
		a0, a1 := arcAngles(el.Center, el.Start, el.End)
		edge, err := k.EdgeFromArc(s.plane.FrameAt(el.Center), el.Radius, a0, a1)
		if err != nil {
			log.Warn().Str("element", el.id).Err(err).Msg("skipping arc edge")
			return nil
		}
		return []kernel.Edge{edge}

	case *Rectangle:
		corners := el.Corners()
		edges := make([]kernel.Edge, 0, 4)
		for i := range corners {
			p := s.plane.To3D(corners[i])
			q := s.plane.To3D(corners[(i+1)%4])
			edge, err := k.EdgeFromPoints(p, q)
			if err != nil {
				log.Warn().Str("element", el.id).Err(err).Msg("skipping rectangle edge")
				continue
			}
			edges = append(edges, edge)
		}
		return edges

	case *Fillet:
		a0, a1 := arcAngles(el.Center, el.Tangent1, el.Tangent2)
		edge, err := k.EdgeFromArc(s.plane.FrameAt(el.Center), el.Radius, a0, a1)
		if err != nil {
			// Straight-segment fallback keeps the boundary usable when the
			// arc cannot be built.
			log.Warn().Str("element", el.id).Err(err).Msg("fillet arc failed, falling back to straight segment")
			line, lerr := k.EdgeFromPoints(s.plane.To3D(el.Tangent1), s.plane.To3D(el.Tangent2))
			if lerr != nil {
				log.Warn().Str("element", el.id).Err(lerr).Msg("skipping fillet edge")
				return nil
			}
			return []kernel.Edge{line}
		}
		return []kernel.Edge{edge}

	case *Chamfer:
		edge, err := k.EdgeFromPoints(s.plane.To3D(el.Start), s.plane.To3D(el.End))
		if err != nil {
			log.Warn().Str("element", el.ID()).Err(err).Msg("skipping chamfer edge")
			return nil
		}
		return []kernel.Edge{edge}

	default:
		log.Warn().Str("element", e.ID()).Msg("unknown element type in wire assembly")
		return nil
	}
}

// arcAngles returns plane-local start and end angles for an arc around
// center, normalized so the sweep is positive.
func arcAngles(center, start, end geom.Point2D) (float64, float64) {
	v0 := start.Sub(center)
	v1 := end.Sub(center)
	a0 := math.Atan2(v0.Y, v0.X)
	a1 := math.Atan2(v1.Y, v1.X)
	if a1 < a0 {
		a1 += 2 * math.Pi
	}
	return a0, a1
}

// CreateFace builds a face from the sketch boundary with canonical forward
// orientation.
func (s *Sketch) CreateFace(k kernel.Kernel) (kernel.Face, error) {
	w, err := s.CreateWire(k)
	if err != nil {
		return nil, err
	}
	f, err := k.FaceFromWire(w)
	if err != nil {
		return nil, fmt.Errorf("%w: face construction: %v", model.ErrGeometricFailure, err)
	}
	return f, nil
}

// CreateFaceFromElement promotes a single element to a standalone face.
// Rectangles get the explicit four-edge closed wire; every other type
// becomes a single-edge wire, which only produces a face when the edge is
// inherently closed (a circle).
func (s *Sketch) CreateFaceFromElement(k kernel.Kernel, elementID string) (kernel.Face, error) {
	e, err := s.Element(elementID)
	if err != nil {
		return nil, err
	}

	edges := s.elementEdges(k, e)
	if len(edges) == 0 {
		return nil, fmt.Errorf("%w: no edge for element %q", model.ErrGeometricFailure, elementID)
	}

	w, err := k.WireFromEdges(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: wire for element %q: %v", model.ErrGeometricFailure, elementID, err)
	}
	f, err := k.FaceFromWire(w)
	if err != nil {
		return nil, fmt.Errorf("%w: face for element %q: %v", model.ErrGeometricFailure, elementID, err)
	}
	return f, nil
}

// IsValid reports whether the sketch produces a usable boundary.
func (s *Sketch) IsValid(k kernel.Kernel) bool {
	if len(s.elements) == 0 {
		return false
	}
	_, err := s.CreateWire(k)
	return err == nil
}

// ValidationErrors lists the reasons a sketch is unusable, empty when valid.
func (s *Sketch) ValidationErrors(k kernel.Kernel) []string {
	var errs []string
	if len(s.elements) == 0 {
		errs = append(errs, "sketch is empty")
		return errs
	}
	if _, err := s.CreateWire(k); err != nil {
		errs = append(errs, "sketch geometry is invalid")
	}
	return errs
}
