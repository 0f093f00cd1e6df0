package sketch

import (
	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/pkg/model"
)

// Element is one 2D primitive authored within a sketch. Each variant carries
// only the fields its kind needs; identifiers are unique within a sketch and
// assigned sequentially per type at creation.
type Element interface {
	ID() string
	Type() model.ElementType
}

// Line is a straight segment between two sketch points.
type Line struct {
	id    string
	Start geom.Point2D
	End   geom.Point2D
}

func (l *Line) ID() string              { return l.id }
func (l *Line) Type() model.ElementType { return model.ElementLine }

// Direction returns the unnormalized direction of the line.
func (l *Line) Direction() geom.Point2D { return l.End.Sub(l.Start) }

// Circle is a full circle given by center and radius.
type Circle struct {
	id     string
	Center geom.Point2D
	Radius float64
}

func (c *Circle) ID() string              { return c.id }
func (c *Circle) Type() model.ElementType { return model.ElementCircle }

// Arc is a circular arc from Start to End counterclockwise around Center.
type Arc struct {
	id     string
	Center geom.Point2D
	Start  geom.Point2D
	End    geom.Point2D
	Radius float64
}

func (a *Arc) ID() string              { return a.id }
func (a *Arc) Type() model.ElementType { return model.ElementArc }

// Rectangle is an axis-aligned rectangle anchored at its bottom-left corner.
type Rectangle struct {
	id     string
	Corner geom.Point2D
	Width  float64
	Height float64
}

func (r *Rectangle) ID() string              { return r.id }
func (r *Rectangle) Type() model.ElementType { return model.ElementRectangle }

// Corners returns the four corner points in counterclockwise order starting
// from the bottom-left anchor.
func (r *Rectangle) Corners() [4]geom.Point2D {
	return [4]geom.Point2D{
		r.Corner,
		{X: r.Corner.X + r.Width, Y: r.Corner.Y},
		{X: r.Corner.X + r.Width, Y: r.Corner.Y + r.Height},
		{X: r.Corner.X, Y: r.Corner.Y + r.Height},
	}
}

// Fillet is a tangent-circle rounding between two referenced line elements.
// Center and the two tangent points are derived by the fillet solve, never
// authored directly.
type Fillet struct {
	id       string
	Center   geom.Point2D
	Tangent1 geom.Point2D
	Tangent2 geom.Point2D
	Radius   float64
	Refs     [2]string
}

func (f *Fillet) ID() string              { return f.id }
func (f *Fillet) Type() model.ElementType { return model.ElementFillet }

// Chamfer is a straight corner cut between two referenced line elements.
// Start and End are the derived cut points on each line.
type Chamfer struct {
	id       string
	Start    geom.Point2D
	End      geom.Point2D
	Distance float64
	Refs     [2]string
}

func (c *Chamfer) ID() string              { return c.id }
func (c *Chamfer) Type() model.ElementType { return model.ElementChamfer }
