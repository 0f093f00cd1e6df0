package sketch

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/pkg/model"
)

// AddFillet computes a tangent-circle rounding between two line elements and
// appends it as a Fillet element. Only Line-Line pairs are supported; other
// combinations fail explicitly. Parallel lines fail with a geometric
// failure.
func (s *Sketch) AddFillet(id1, id2 string, radius float64) (string, error) {
	if radius <= 0 {
		return "", fmt.Errorf("%w: fillet radius must be positive, got %g", model.ErrInvalidParameters, radius)
	}
	l1, l2, err := s.linePair(id1, id2)
	if err != nil {
		return "", err
	}

	center, t1, t2, err := filletSolve(l1, l2, radius)
	if err != nil {
		return "", err
	}

	f := &Fillet{
		id:       s.nextID(model.ElementFillet),
		Center:   center,
		Tangent1: t1,
		Tangent2: t2,
		Radius:   radius,
		Refs:     [2]string{id1, id2},
	}
	s.elements = append(s.elements, f)
	log.Debug().
		Str("sketch", s.id).
		Str("element", f.id).
		Float64("radius", radius).
		Msg("added fillet")
	return f.id, nil
}

// AddChamfer computes a straight corner cut between two line elements at the
// given tangent distance from their intersection and appends it as a Chamfer
// element.
func (s *Sketch) AddChamfer(id1, id2 string, distance float64) (string, error) {
	if distance <= 0 {
		return "", fmt.Errorf("%w: chamfer distance must be positive, got %g", model.ErrInvalidParameters, distance)
	}
	l1, l2, err := s.linePair(id1, id2)
	if err != nil {
		return "", err
	}

	inter, e1, e2, _, err := cornerGeometry(l1, l2)
	if err != nil {
		return "", err
	}

	c := &Chamfer{
		id:       s.nextID(model.ElementChamfer),
		Start:    inter.Add(e1.Scale(distance)),
		End:      inter.Add(e2.Scale(distance)),
		Distance: distance,
		Refs:     [2]string{id1, id2},
	}
	s.elements = append(s.elements, c)
	log.Debug().
		Str("sketch", s.id).
		Str("element", c.id).
		Float64("distance", distance).
		Msg("added chamfer")
	return c.id, nil
}

// linePair resolves two element ids that must both be lines.
func (s *Sketch) linePair(id1, id2 string) (*Line, *Line, error) {
	e1, err := s.Element(id1)
	if err != nil {
		return nil, nil, err
	}
	e2, err := s.Element(id2)
	if err != nil {
		return nil, nil, err
	}
	l1, ok1 := e1.(*Line)
	l2, ok2 := e2.(*Line)
	if !ok1 || !ok2 {
		return nil, nil, fmt.Errorf("%w: rounding between %s and %s is not supported",
			model.ErrInvalidParameters, e1.Type(), e2.Type())
	}
	return l1, l2, nil
}

// cornerGeometry is the shared setup for fillet and chamfer solves: the
// intersection of the two carrier lines, each line's unit direction
// re-oriented to point from the intersection toward that line's farther
// endpoint (into the retained corner), and the opening angle between those
// directions.
func cornerGeometry(l1, l2 *Line) (inter, e1, e2 geom.Point2D, angle float64, err error) {
	inter, err = lineIntersection(l1, l2)
	if err != nil {
		return geom.Point2D{}, geom.Point2D{}, geom.Point2D{}, 0, err
	}

	e1, err = cornerDirection(l1, inter)
	if err != nil {
		return geom.Point2D{}, geom.Point2D{}, geom.Point2D{}, 0, err
	}
	e2, err = cornerDirection(l2, inter)
	if err != nil {
		return geom.Point2D{}, geom.Point2D{}, geom.Point2D{}, 0, err
	}

	angle = math.Atan2(math.Abs(e1.Cross(e2)), e1.Dot(e2))
	if angle < geom.Epsilon || math.Pi-angle < geom.Epsilon {
		return geom.Point2D{}, geom.Point2D{}, geom.Point2D{}, 0,
			fmt.Errorf("%w: lines are collinear at the corner", model.ErrGeometricFailure)
	}
	return inter, e1, e2, angle, nil
}

// cornerDirection returns the unit direction of a line oriented from the
// intersection toward the line's farther endpoint.
func cornerDirection(l *Line, inter geom.Point2D) (geom.Point2D, error) {
	d := l.Direction()
	if d.Length() < geom.Epsilon {
		return geom.Point2D{}, fmt.Errorf("%w: line %q has zero length", model.ErrGeometricFailure, l.id)
	}
	d = d.Normalized()
	if inter.Distance(l.Start) > inter.Distance(l.End) {
		return d.Scale(-1), nil
	}
	return d, nil
}

// filletSolve computes the fillet center and the two tangent points for a
// Line-Line corner. The center lies on the corner bisector at distance
// radius/sin(angle/2) from the intersection; each tangent point is found by
// projecting the center onto the line and stepping back toward the center by
// exactly radius, so the rounding circle touches each line tangentially.
func filletSolve(l1, l2 *Line, radius float64) (center, t1, t2 geom.Point2D, err error) {
	inter, e1, e2, angle, err := cornerGeometry(l1, l2)
	if err != nil {
		return geom.Point2D{}, geom.Point2D{}, geom.Point2D{}, err
	}

	halfSin := math.Sin(angle / 2)
	if halfSin < geom.Epsilon {
		return geom.Point2D{}, geom.Point2D{}, geom.Point2D{},
			fmt.Errorf("%w: corner angle too small for fillet", model.ErrGeometricFailure)
	}

	bisector := e1.Add(e2).Normalized()
	if bisector.Length() < geom.Epsilon {
		return geom.Point2D{}, geom.Point2D{}, geom.Point2D{},
			fmt.Errorf("%w: corner bisector is degenerate", model.ErrGeometricFailure)
	}

	center = inter.Add(bisector.Scale(radius / halfSin))
	t1 = tangentPoint(l1, center, radius)
	t2 = tangentPoint(l2, center, radius)
	return center, t1, t2, nil
}

// tangentPoint projects the fillet center onto a line's carrier and returns
// the point at distance radius from the center along the center-to-foot
// direction.
func tangentPoint(l *Line, center geom.Point2D, radius float64) geom.Point2D {
	d := l.Direction().Normalized()
	foot := l.Start.Add(d.Scale(center.Sub(l.Start).Dot(d)))
	toCenter := center.Sub(foot).Normalized()
	return center.Sub(toCenter.Scale(radius))
}
