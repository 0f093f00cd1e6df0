package sketch

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/pkg/model"
)

// connectTol is the endpoint coincidence tolerance for connectivity checks.
const connectTol = 1e-6

// Sketch is an ordered collection of elements on one plane. Insertion order
// is significant for wire assembly. A sketch is not safe for concurrent use;
// the owning session serializes access.
type Sketch struct {
	id       string
	plane    *Plane
	elements []Element
	closed   bool
	counters map[model.ElementType]int
}

// New creates an empty sketch bound to a plane.
func New(id string, plane *Plane) *Sketch {
	return &Sketch{
		id:       id,
		plane:    plane,
		counters: make(map[model.ElementType]int),
	}
}

// ID returns the sketch identifier.
func (s *Sketch) ID() string { return s.id }

// Plane returns the plane the sketch is bound to.
func (s *Sketch) Plane() *Plane { return s.plane }

// Elements returns the element sequence in insertion order.
func (s *Sketch) Elements() []Element { return s.elements }

// Element returns the element with the given id.
func (s *Sketch) Element(id string) (Element, error) {
	for _, e := range s.elements {
		if e.ID() == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: element %q in sketch %q", model.ErrNotFound, id, s.id)
}

func (s *Sketch) nextID(typ model.ElementType) string {
	s.counters[typ]++
	return fmt.Sprintf("%s_%d", typ, s.counters[typ])
}

// AddLine appends a line segment and returns its id.
func (s *Sketch) AddLine(start, end geom.Point2D) string {
	l := &Line{id: s.nextID(model.ElementLine), Start: start, End: end}
	s.elements = append(s.elements, l)
	log.Debug().Str("sketch", s.id).Str("element", l.id).Msg("added line")
	return l.id
}

// AddCircle appends a circle and returns its id. The radius must be
// positive.
func (s *Sketch) AddCircle(center geom.Point2D, radius float64) (string, error) {
	if radius <= 0 {
		return "", fmt.Errorf("%w: circle radius must be positive, got %g", model.ErrInvalidParameters, radius)
	}
	c := &Circle{id: s.nextID(model.ElementCircle), Center: center, Radius: radius}
	s.elements = append(s.elements, c)
	log.Debug().Str("sketch", s.id).Str("element", c.id).Msg("added circle")
	return c.id, nil
}

// AddRectangle appends an axis-aligned rectangle anchored at its bottom-left
// corner and returns its id.
func (s *Sketch) AddRectangle(corner geom.Point2D, width, height float64) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("%w: rectangle dimensions must be positive, got %g x %g", model.ErrInvalidParameters, width, height)
	}
	r := &Rectangle{id: s.nextID(model.ElementRectangle), Corner: corner, Width: width, Height: height}
	s.elements = append(s.elements, r)
	log.Debug().Str("sketch", s.id).Str("element", r.id).Msg("added rectangle")
	return r.id, nil
}

// AddArcThreePoints appends an arc through three points. Fails when the
// points are collinear.
func (s *Sketch) AddArcThreePoints(start, mid, end geom.Point2D) (string, error) {
	center, radius, err := circumcenter(start, mid, end)
	if err != nil {
		return "", err
	}
	a := &Arc{id: s.nextID(model.ElementArc), Center: center, Start: start, End: end, Radius: radius}
	s.elements = append(s.elements, a)
	log.Debug().Str("sketch", s.id).Str("element", a.id).Msg("added three-point arc")
	return a.id, nil
}

// AddArcEndpointsRadius appends an arc between two endpoints with a given
// radius. largeArc selects which of the two candidate centers is used. Fails
// when the radius is smaller than half the chord.
func (s *Sketch) AddArcEndpointsRadius(start, end geom.Point2D, radius float64, largeArc bool) (string, error) {
	if radius <= 0 {
		return "", fmt.Errorf("%w: arc radius must be positive, got %g", model.ErrInvalidParameters, radius)
	}
	chord := start.Distance(end)
	if chord < geom.Epsilon {
		return "", fmt.Errorf("%w: arc endpoints coincide", model.ErrInvalidParameters)
	}
	if chord > 2*radius {
		return "", fmt.Errorf("%w: radius %g too small for chord length %g", model.ErrGeometricFailure, radius, chord)
	}

	mid := start.Add(end).Scale(0.5)
	h := math.Sqrt(radius*radius - (chord/2)*(chord/2))
	// Unit perpendicular to the chord.
	perp := geom.Point2D{X: -(end.Y - start.Y) / chord, Y: (end.X - start.X) / chord}

	var center geom.Point2D
	if largeArc {
		center = mid.Add(perp.Scale(h))
	} else {
		center = mid.Sub(perp.Scale(h))
	}
	a := &Arc{id: s.nextID(model.ElementArc), Center: center, Start: start, End: end, Radius: radius}
	s.elements = append(s.elements, a)
	log.Debug().Str("sketch", s.id).Str("element", a.id).Msg("added endpoint-radius arc")
	return a.id, nil
}

// circumcenter solves the circle through three points. Fails for collinear
// input.
func circumcenter(p1, p2, p3 geom.Point2D) (geom.Point2D, float64, error) {
	d := 2 * (p1.X*(p2.Y-p3.Y) + p2.X*(p3.Y-p1.Y) + p3.X*(p1.Y-p2.Y))
	if math.Abs(d) < geom.Epsilon {
		return geom.Point2D{}, 0, fmt.Errorf("%w: arc points are collinear", model.ErrGeometricFailure)
	}
	s1 := p1.X*p1.X + p1.Y*p1.Y
	s2 := p2.X*p2.X + p2.Y*p2.Y
	s3 := p3.X*p3.X + p3.Y*p3.Y
	center := geom.Point2D{
		X: (s1*(p2.Y-p3.Y) + s2*(p3.Y-p1.Y) + s3*(p1.Y-p2.Y)) / d,
		Y: (s1*(p3.X-p2.X) + s2*(p1.X-p3.X) + s3*(p2.X-p1.X)) / d,
	}
	return center, center.Distance(p1), nil
}

// RemoveElement deletes the element with the given id. Removing an unknown
// id is a no-op, matching delete semantics of the registries above it.
func (s *Sketch) RemoveElement(id string) {
	for i, e := range s.elements {
		if e.ID() == id {
			s.elements = append(s.elements[:i], s.elements[i+1:]...)
			return
		}
	}
}

// ClearAll removes every element and reopens the sketch.
func (s *Sketch) ClearAll() {
	s.elements = nil
	s.closed = false
	s.counters = make(map[model.ElementType]int)
}

// Close marks the sketch as a closed profile.
func (s *Sketch) Close() { s.closed = true }

// IsClosed reports whether the sketch forms a closed profile. A sketch
// containing a circle is inherently closed; otherwise the explicit closed
// flag decides.
func (s *Sketch) IsClosed() bool {
	if len(s.elements) == 0 {
		return false
	}
	for _, e := range s.elements {
		if e.Type() == model.ElementCircle {
			return true
		}
	}
	return s.closed
}

// ElementIntersection computes the intersection point of two elements.
// Only Line-Line pairs are supported; the infinite carrier lines are
// intersected, so the point may lie outside either segment. Parallel lines
// report a geometric failure, unsupported pairs an invalid-parameters error
// rather than a wrong answer.
func (s *Sketch) ElementIntersection(id1, id2 string) (geom.Point2D, error) {
	e1, err := s.Element(id1)
	if err != nil {
		return geom.Point2D{}, err
	}
	e2, err := s.Element(id2)
	if err != nil {
		return geom.Point2D{}, err
	}

	l1, ok1 := e1.(*Line)
	l2, ok2 := e2.(*Line)
	if !ok1 || !ok2 {
		return geom.Point2D{}, fmt.Errorf("%w: intersection between %s and %s is not supported",
			model.ErrInvalidParameters, e1.Type(), e2.Type())
	}
	return lineIntersection(l1, l2)
}

// lineIntersection solves P1 + t*D1 = P2 + u*D2 for the infinite carrier
// lines of two segments.
func lineIntersection(l1, l2 *Line) (geom.Point2D, error) {
	d1 := l1.Direction()
	d2 := l2.Direction()

	det := d1.Cross(d2)
	if math.Abs(det) < geom.Epsilon {
		return geom.Point2D{}, fmt.Errorf("%w: lines are parallel, no intersection", model.ErrGeometricFailure)
	}

	dp := l2.Start.Sub(l1.Start)
	t := dp.Cross(d2) / det
	return l1.Start.Add(d1.Scale(t)), nil
}

// ElementsConnected reports whether two elements share an endpoint within
// tolerance. Only Line-Line pairs are supported.
func (s *Sketch) ElementsConnected(id1, id2 string) (bool, error) {
	e1, err := s.Element(id1)
	if err != nil {
		return false, err
	}
	e2, err := s.Element(id2)
	if err != nil {
		return false, err
	}

	l1, ok1 := e1.(*Line)
	l2, ok2 := e2.(*Line)
	if !ok1 || !ok2 {
		return false, fmt.Errorf("%w: connectivity between %s and %s is not supported",
			model.ErrInvalidParameters, e1.Type(), e2.Type())
	}

	return l1.Start.Distance(l2.Start) < connectTol ||
		l1.Start.Distance(l2.End) < connectTol ||
		l1.End.Distance(l2.Start) < connectTol ||
		l1.End.Distance(l2.End) < connectTol, nil
}
