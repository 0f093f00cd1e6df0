package sketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/pkg/model"
)

func TestCanonicalPlaneAxes(t *testing.T) {
	tests := []struct {
		typ    model.PlaneType
		normal geom.Vec3
	}{
		{model.PlaneXY, geom.Vec3{Z: 1}},
		{model.PlaneXZ, geom.Vec3{Y: 1}},
		{model.PlaneYZ, geom.Vec3{X: 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			p, err := NewCanonicalPlane("p1", tt.typ, geom.Vec3{})
			require.NoError(t, err)

			assert.True(t, p.Normal().NearEqual(tt.normal, 1e-12))
			assert.InDelta(t, 1.0, p.UAxis().Length(), 1e-12)
			assert.InDelta(t, 1.0, p.VAxis().Length(), 1e-12)
			assert.InDelta(t, 0.0, p.UAxis().Dot(p.VAxis()), 1e-12)
			assert.InDelta(t, 0.0, p.UAxis().Dot(p.Normal()), 1e-12)
			assert.InDelta(t, 0.0, p.VAxis().Dot(p.Normal()), 1e-12)
		})
	}
}

func TestCanonicalPlaneRejectsCustomType(t *testing.T) {
	_, err := NewCanonicalPlane("p1", model.PlaneCustom, geom.Vec3{})
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestRoundTrip2D3D(t *testing.T) {
	planes := []*Plane{}
	for _, typ := range []model.PlaneType{model.PlaneXY, model.PlaneXZ, model.PlaneYZ} {
		p, err := NewCanonicalPlane(string(typ), typ, geom.Vec3{X: 1, Y: 2, Z: 3})
		require.NoError(t, err)
		planes = append(planes, p)
	}
	custom, err := NewCustomPlane("custom", geom.Vec3{X: -4, Z: 2}, geom.Vec3{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)
	planes = append(planes, custom)

	points := []geom.Point2D{{}, {X: 10}, {Y: -7.5}, {X: 3.25, Y: 4.75}, {X: -100, Y: 42}}
	for _, p := range planes {
		for _, pt := range points {
			back := p.To2D(p.To3D(pt))
			assert.InDelta(t, pt.X, back.X, 1e-9, "plane %s", p.ID())
			assert.InDelta(t, pt.Y, back.Y, 1e-9, "plane %s", p.ID())
		}
	}
}

func TestTo2DProjectsOffPlanePoints(t *testing.T) {
	p, err := NewCanonicalPlane("xy", model.PlaneXY, geom.Vec3{})
	require.NoError(t, err)

	// The normal component is discarded, not minimized against.
	pt := p.To2D(geom.Vec3{X: 3, Y: 4, Z: 99})
	assert.InDelta(t, 3.0, pt.X, 1e-12)
	assert.InDelta(t, 4.0, pt.Y, 1e-12)
}

func TestCustomPlaneAxisDerivation(t *testing.T) {
	// Normal far from Z: X axis comes from normal x Z.
	p, err := NewCustomPlane("c1", geom.Vec3{}, geom.Vec3{X: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, p.UAxis().Dot(p.Normal()), 1e-12)
	assert.InDelta(t, 1.0, p.UAxis().Length(), 1e-12)

	// Normal near Z: fallback reference avoids the degenerate cross product.
	p, err = NewCustomPlane("c2", geom.Vec3{}, geom.Vec3{Z: 1})
	require.NoError(t, err)
	assert.Greater(t, p.UAxis().Length(), 0.9)
	assert.InDelta(t, 0.0, p.UAxis().Dot(p.Normal()), 1e-12)
}

func TestCustomPlaneDegenerateNormal(t *testing.T) {
	_, err := NewCustomPlane("bad", geom.Vec3{}, geom.Vec3{})
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestFrameAt(t *testing.T) {
	p, err := NewCanonicalPlane("xy", model.PlaneXY, geom.Vec3{Z: 5})
	require.NoError(t, err)

	f := p.FrameAt(geom.Point2D{X: 2, Y: 3})
	assert.True(t, f.Origin.NearEqual(geom.Vec3{X: 2, Y: 3, Z: 5}, 1e-12))
	assert.True(t, f.Normal.NearEqual(p.Normal(), 1e-12))
}
