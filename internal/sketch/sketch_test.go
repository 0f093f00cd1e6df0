package sketch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/internal/kernel/brep"
	"github.com/latticecad/lattice/pkg/model"
)

// SketchSuite exercises authoring and assembly on an XY-plane sketch.
type SketchSuite struct {
	suite.Suite
	sketch *Sketch
	kern   *brep.Backend
}

func (s *SketchSuite) SetupTest() {
	plane, err := NewCanonicalPlane("xy_plane_1", model.PlaneXY, geom.Vec3{})
	s.Require().NoError(err)
	s.sketch = New("sketch_1", plane)
	s.kern = brep.New()
}

func TestSketchSuite(t *testing.T) {
	suite.Run(t, new(SketchSuite))
}

func (s *SketchSuite) TestSequentialPerTypeIDs() {
	id1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 1})
	id2 := s.sketch.AddLine(geom.Point2D{X: 1}, geom.Point2D{X: 2})
	circleID, err := s.sketch.AddCircle(geom.Point2D{}, 5)
	s.Require().NoError(err)

	s.Equal("line_1", id1)
	s.Equal("line_2", id2)
	s.Equal("circle_1", circleID)
}

func (s *SketchSuite) TestPositiveParameterValidation() {
	_, err := s.sketch.AddCircle(geom.Point2D{}, 0)
	s.ErrorIs(err, model.ErrInvalidParameters)

	_, err = s.sketch.AddRectangle(geom.Point2D{}, -1, 5)
	s.ErrorIs(err, model.ErrInvalidParameters)

	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	l2 := s.sketch.AddLine(geom.Point2D{X: 10}, geom.Point2D{X: 10, Y: 10})
	_, err = s.sketch.AddFillet(l1, l2, -2)
	s.ErrorIs(err, model.ErrInvalidParameters)
}

func (s *SketchSuite) TestRemoveElement() {
	id := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 1})
	s.Len(s.sketch.Elements(), 1)

	s.sketch.RemoveElement(id)
	s.Empty(s.sketch.Elements())

	_, err := s.sketch.Element(id)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *SketchSuite) TestClearAllResetsCounters() {
	s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 1})
	s.sketch.ClearAll()

	id := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 1})
	s.Equal("line_1", id)
}

func (s *SketchSuite) TestIsClosed() {
	s.False(s.sketch.IsClosed(), "empty sketch is open")

	s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 1})
	s.False(s.sketch.IsClosed())

	s.sketch.Close()
	s.True(s.sketch.IsClosed())

	s.sketch.ClearAll()
	_, err := s.sketch.AddCircle(geom.Point2D{}, 2)
	s.Require().NoError(err)
	s.True(s.sketch.IsClosed(), "a circle closes the sketch inherently")
}

func (s *SketchSuite) TestLineIntersection() {
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	l2 := s.sketch.AddLine(geom.Point2D{X: 5, Y: -5}, geom.Point2D{X: 5, Y: 5})

	pt, err := s.sketch.ElementIntersection(l1, l2)
	s.Require().NoError(err)
	s.InDelta(5.0, pt.X, 1e-9)
	s.InDelta(0.0, pt.Y, 1e-9)
}

func (s *SketchSuite) TestIntersectionBeyondSegments() {
	// Carrier lines intersect outside both segments; the solve still
	// reports the carrier intersection.
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 1})
	l2 := s.sketch.AddLine(geom.Point2D{X: 10, Y: -1}, geom.Point2D{X: 10, Y: 1})

	pt, err := s.sketch.ElementIntersection(l1, l2)
	s.Require().NoError(err)
	s.InDelta(10.0, pt.X, 1e-9)
}

func (s *SketchSuite) TestParallelIntersectionFails() {
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	l2 := s.sketch.AddLine(geom.Point2D{Y: 5}, geom.Point2D{X: 10, Y: 5})

	_, err := s.sketch.ElementIntersection(l1, l2)
	s.ErrorIs(err, model.ErrGeometricFailure)
}

func (s *SketchSuite) TestIntersectionUnsupportedPair() {
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	c1, err := s.sketch.AddCircle(geom.Point2D{X: 5}, 2)
	s.Require().NoError(err)

	_, err = s.sketch.ElementIntersection(l1, c1)
	s.ErrorIs(err, model.ErrInvalidParameters, "unsupported pairs fail explicitly, never guess")
}

func (s *SketchSuite) TestElementsConnected() {
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	l2 := s.sketch.AddLine(geom.Point2D{X: 10}, geom.Point2D{X: 10, Y: 10})
	l3 := s.sketch.AddLine(geom.Point2D{X: 50}, geom.Point2D{X: 60})

	connected, err := s.sketch.ElementsConnected(l1, l2)
	s.Require().NoError(err)
	s.True(connected)

	connected, err = s.sketch.ElementsConnected(l1, l3)
	s.Require().NoError(err)
	s.False(connected)
}

func (s *SketchSuite) TestFilletRightAngleCorner() {
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	l2 := s.sketch.AddLine(geom.Point2D{X: 10}, geom.Point2D{X: 10, Y: 10})

	id, err := s.sketch.AddFillet(l1, l2, 2)
	s.Require().NoError(err)

	e, err := s.sketch.Element(id)
	s.Require().NoError(err)
	f := e.(*Fillet)

	s.InDelta(8.0, f.Center.X, 1e-9)
	s.InDelta(2.0, f.Center.Y, 1e-9)
	s.InDelta(8.0, f.Tangent1.X, 1e-9)
	s.InDelta(0.0, f.Tangent1.Y, 1e-9)
	s.InDelta(10.0, f.Tangent2.X, 1e-9)
	s.InDelta(2.0, f.Tangent2.Y, 1e-9)
	s.Equal([2]string{l1, l2}, f.Refs)
}

func (s *SketchSuite) TestFilletTangencyProperties() {
	// An oblique corner: both tangent points must sit exactly radius from
	// the center and exactly on their source carrier lines.
	l1 := s.sketch.AddLine(geom.Point2D{X: -3, Y: 1}, geom.Point2D{X: 9, Y: 4})
	l2 := s.sketch.AddLine(geom.Point2D{X: 9, Y: 4}, geom.Point2D{X: 2, Y: 13})

	id, err := s.sketch.AddFillet(l1, l2, 1.5)
	s.Require().NoError(err)

	e, _ := s.sketch.Element(id)
	f := e.(*Fillet)

	s.InDelta(1.5, f.Center.Distance(f.Tangent1), 1e-9)
	s.InDelta(1.5, f.Center.Distance(f.Tangent2), 1e-9)

	line1, _ := s.sketch.Element(l1)
	line2, _ := s.sketch.Element(l2)
	s.InDelta(0.0, distanceToCarrier(line1.(*Line), f.Tangent1), 1e-9)
	s.InDelta(0.0, distanceToCarrier(line2.(*Line), f.Tangent2), 1e-9)
}

func (s *SketchSuite) TestFilletParallelLinesFails() {
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	l2 := s.sketch.AddLine(geom.Point2D{Y: 4}, geom.Point2D{X: 10, Y: 4})

	_, err := s.sketch.AddFillet(l1, l2, 2)
	s.ErrorIs(err, model.ErrGeometricFailure)
	s.Len(s.sketch.Elements(), 2, "no element appended on failure")
}

func (s *SketchSuite) TestFilletUnknownElementFails() {
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})

	_, err := s.sketch.AddFillet(l1, "line_99", 2)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *SketchSuite) TestFilletUnsupportedTypesFails() {
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	c1, err := s.sketch.AddCircle(geom.Point2D{X: 5, Y: 5}, 2)
	s.Require().NoError(err)

	_, err = s.sketch.AddFillet(l1, c1, 2)
	s.ErrorIs(err, model.ErrInvalidParameters)
}

func (s *SketchSuite) TestChamferRightAngleCorner() {
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	l2 := s.sketch.AddLine(geom.Point2D{X: 10}, geom.Point2D{X: 10, Y: 10})

	id, err := s.sketch.AddChamfer(l1, l2, 3)
	s.Require().NoError(err)

	e, _ := s.sketch.Element(id)
	c := e.(*Chamfer)
	s.InDelta(7.0, c.Start.X, 1e-9)
	s.InDelta(0.0, c.Start.Y, 1e-9)
	s.InDelta(10.0, c.End.X, 1e-9)
	s.InDelta(3.0, c.End.Y, 1e-9)
}

func (s *SketchSuite) TestArcThreePoints() {
	// Half circle of radius 5 around the origin.
	id, err := s.sketch.AddArcThreePoints(
		geom.Point2D{X: 5}, geom.Point2D{Y: 5}, geom.Point2D{X: -5})
	s.Require().NoError(err)

	e, _ := s.sketch.Element(id)
	a := e.(*Arc)
	s.InDelta(0.0, a.Center.X, 1e-9)
	s.InDelta(0.0, a.Center.Y, 1e-9)
	s.InDelta(5.0, a.Radius, 1e-9)
}

func (s *SketchSuite) TestArcThreePointsCollinearFails() {
	_, err := s.sketch.AddArcThreePoints(
		geom.Point2D{}, geom.Point2D{X: 5}, geom.Point2D{X: 10})
	s.ErrorIs(err, model.ErrGeometricFailure)
}

func (s *SketchSuite) TestArcEndpointsRadius() {
	id, err := s.sketch.AddArcEndpointsRadius(
		geom.Point2D{X: -3}, geom.Point2D{X: 3}, 5, false)
	s.Require().NoError(err)

	e, _ := s.sketch.Element(id)
	a := e.(*Arc)
	s.InDelta(5.0, a.Center.Distance(a.Start), 1e-9)
	s.InDelta(5.0, a.Center.Distance(a.End), 1e-9)

	// Small-arc center sits on the opposite side from the large-arc one.
	id2, err := s.sketch.AddArcEndpointsRadius(
		geom.Point2D{X: -3}, geom.Point2D{X: 3}, 5, true)
	s.Require().NoError(err)
	e2, _ := s.sketch.Element(id2)
	a2 := e2.(*Arc)
	s.InDelta(-a.Center.Y, a2.Center.Y, 1e-9)
}

func (s *SketchSuite) TestArcEndpointsRadiusTooSmallFails() {
	_, err := s.sketch.AddArcEndpointsRadius(
		geom.Point2D{}, geom.Point2D{X: 20}, 5, false)
	s.ErrorIs(err, model.ErrGeometricFailure)
}

func (s *SketchSuite) TestCreateWireClosedTriangle() {
	s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	s.sketch.AddLine(geom.Point2D{X: 10}, geom.Point2D{X: 5, Y: 8})
	s.sketch.AddLine(geom.Point2D{X: 5, Y: 8}, geom.Point2D{})

	w, err := s.sketch.CreateWire(s.kern)
	s.Require().NoError(err)
	s.True(w.Closed())
}

func (s *SketchSuite) TestCreateWireEmptySketchFails() {
	_, err := s.sketch.CreateWire(s.kern)
	s.ErrorIs(err, model.ErrGeometricFailure)
}

func (s *SketchSuite) TestCreateFaceFromRectangleElement() {
	id, err := s.sketch.AddRectangle(geom.Point2D{X: 1, Y: 1}, 4, 3)
	s.Require().NoError(err)

	f, err := s.sketch.CreateFaceFromElement(s.kern, id)
	s.Require().NoError(err)
	s.True(f.Forward())
}

func (s *SketchSuite) TestCreateFaceFromCircleElement() {
	id, err := s.sketch.AddCircle(geom.Point2D{X: 2, Y: 2}, 3)
	s.Require().NoError(err)

	f, err := s.sketch.CreateFaceFromElement(s.kern, id)
	s.Require().NoError(err)
	s.True(f.Forward())
}

func (s *SketchSuite) TestCreateFaceFromUnknownElement() {
	_, err := s.sketch.CreateFaceFromElement(s.kern, "circle_9")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *SketchSuite) TestFilletedWireKeepsUntrimmedPolicy() {
	// The referenced lines are excluded from the boundary and NOT trimmed
	// to the tangent points; the wire is assembled from what remains.
	l1 := s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	l2 := s.sketch.AddLine(geom.Point2D{X: 10}, geom.Point2D{X: 10, Y: 10})
	s.sketch.AddLine(geom.Point2D{X: 10, Y: 10}, geom.Point2D{})
	_, err := s.sketch.AddFillet(l1, l2, 2)
	s.Require().NoError(err)

	w, err := s.sketch.CreateWire(s.kern)
	s.Require().NoError(err)
	s.NotNil(w)
}

func (s *SketchSuite) TestValidationErrors() {
	s.Equal([]string{"sketch is empty"}, s.sketch.ValidationErrors(s.kern))

	s.sketch.AddLine(geom.Point2D{}, geom.Point2D{X: 10})
	s.Empty(s.sketch.ValidationErrors(s.kern))
	s.True(s.sketch.IsValid(s.kern))
}

// distanceToCarrier returns the perpendicular distance from a point to the
// infinite carrier line of a segment.
func distanceToCarrier(l *Line, p geom.Point2D) float64 {
	d := l.Direction().Normalized()
	v := p.Sub(l.Start)
	return math.Abs(v.Cross(d))
}
