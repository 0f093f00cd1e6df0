package brep

import (
	"errors"
	"fmt"
	"math"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/internal/kernel"
)

// solid is a triangle-mesh boundary representation.
type solid struct {
	verts []geom.Vec3
	tris  [][3]int
}

// Bounds returns the axis-aligned bounding box of the solid.
func (s *solid) Bounds() (geom.Vec3, geom.Vec3) {
	if len(s.verts) == 0 {
		return geom.Vec3{}, geom.Vec3{}
	}
	min, max := s.verts[0], s.verts[0]
	for _, v := range s.verts[1:] {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		min.Z = math.Min(min.Z, v.Z)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
		max.Z = math.Max(max.Z, v.Z)
	}
	return min, max
}

// Prism sweeps a planar face along vec, producing a closed prism mesh with
// fan-triangulated caps.
func (b *Backend) Prism(kf kernel.Face, vec geom.Vec3) (kernel.Shape, error) {
	f, ok := kf.(*face)
	if !ok {
		return nil, errors.New("brep: face is not a brep face")
	}
	if vec.Length() < geom.Epsilon {
		return nil, errors.New("brep: prism vector is degenerate")
	}
	return prismMesh(f.loop, vec), nil
}

// prismMesh builds the swept mesh for a polygon loop. Caps are triangulated
// by a fan from the loop centroid, which is exact for convex loops.
func prismMesh(loop []geom.Vec3, vec geom.Vec3) *solid {
	n := len(loop)
	s := &solid{verts: make([]geom.Vec3, 0, 2*n+2)}

	// Bottom ring [0, n), top ring [n, 2n).
	s.verts = append(s.verts, loop...)
	for _, p := range loop {
		s.verts = append(s.verts, p.Add(vec))
	}

	// Wind so sides face outward for a loop whose normal aligns with vec.
	up := newellNormal(loop).Dot(vec) >= 0

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		bi, bj := i, j
		ti, tj := n+i, n+j
		if up {
			s.tris = append(s.tris, [3]int{bi, bj, tj}, [3]int{bi, tj, ti})
		} else {
			s.tris = append(s.tris, [3]int{bi, tj, bj}, [3]int{bi, ti, tj})
		}
	}

	// Cap centroids.
	var c geom.Vec3
	for _, p := range loop {
		c = c.Add(p)
	}
	c = c.Scale(1 / float64(n))
	bc := len(s.verts)
	s.verts = append(s.verts, c)
	tc := len(s.verts)
	s.verts = append(s.verts, c.Add(vec))

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		if up {
			s.tris = append(s.tris, [3]int{bc, j, i})             // bottom faces -vec
			s.tris = append(s.tris, [3]int{tc, n + i, n + j})     // top faces +vec
		} else {
			s.tris = append(s.tris, [3]int{bc, i, j})
			s.tris = append(s.tris, [3]int{tc, n + j, n + i})
		}
	}
	return s
}

// MakeBox builds an axis-aligned box with its corner at pos.
func (b *Backend) MakeBox(pos geom.Vec3, dx, dy, dz float64) (kernel.Shape, error) {
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return nil, fmt.Errorf("brep: box dimensions must be positive, got %g x %g x %g", dx, dy, dz)
	}
	loop := []geom.Vec3{
		pos,
		{X: pos.X + dx, Y: pos.Y, Z: pos.Z},
		{X: pos.X + dx, Y: pos.Y + dy, Z: pos.Z},
		{X: pos.X, Y: pos.Y + dy, Z: pos.Z},
	}
	return prismMesh(loop, geom.Vec3{Z: dz}), nil
}

// MakeCylinder builds a Z-up cylinder with its base center at pos.
func (b *Backend) MakeCylinder(pos geom.Vec3, radius, height float64) (kernel.Shape, error) {
	if radius <= 0 || height <= 0 {
		return nil, fmt.Errorf("brep: cylinder radius and height must be positive, got r=%g h=%g", radius, height)
	}
	const segments = 32
	loop := make([]geom.Vec3, 0, segments)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		loop = append(loop, geom.Vec3{
			X: pos.X + radius*math.Cos(a),
			Y: pos.Y + radius*math.Sin(a),
			Z: pos.Z,
		})
	}
	return prismMesh(loop, geom.Vec3{Z: height}), nil
}

// MakeSphere builds a UV sphere centered at pos.
func (b *Backend) MakeSphere(pos geom.Vec3, radius float64) (kernel.Shape, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("brep: sphere radius must be positive, got %g", radius)
	}
	const (
		stacks = 16
		slices = 32
	)
	s := &solid{}

	// Rings between the poles, poles as single vertices.
	for i := 1; i < stacks; i++ {
		phi := math.Pi * float64(i) / stacks
		for j := 0; j < slices; j++ {
			theta := 2 * math.Pi * float64(j) / slices
			s.verts = append(s.verts, geom.Vec3{
				X: pos.X + radius*math.Sin(phi)*math.Cos(theta),
				Y: pos.Y + radius*math.Sin(phi)*math.Sin(theta),
				Z: pos.Z + radius*math.Cos(phi),
			})
		}
	}
	top := len(s.verts)
	s.verts = append(s.verts, geom.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z + radius})
	bottom := len(s.verts)
	s.verts = append(s.verts, geom.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z - radius})

	ring := func(i, j int) int { return i*slices + j%slices }
	for j := 0; j < slices; j++ {
		s.tris = append(s.tris, [3]int{top, ring(0, j), ring(0, j+1)})
		s.tris = append(s.tris, [3]int{bottom, ring(stacks-2, j+1), ring(stacks-2, j)})
	}
	for i := 0; i < stacks-2; i++ {
		for j := 0; j < slices; j++ {
			a, b1 := ring(i, j), ring(i, j+1)
			c, d := ring(i+1, j), ring(i+1, j+1)
			s.tris = append(s.tris, [3]int{a, c, d}, [3]int{a, d, b1})
		}
	}
	return s, nil
}

// Tessellate returns the triangle mesh of a shape. The software backend
// meshes shapes at construction, so deflection is recorded as metadata only.
func (b *Backend) Tessellate(ks kernel.Shape, deflection float64) (*kernel.MeshData, error) {
	s, ok := ks.(*solid)
	if !ok {
		return nil, errors.New("brep: shape is not a brep solid")
	}
	if len(s.verts) == 0 || len(s.tris) == 0 {
		return nil, errors.New("brep: shape has no triangulation")
	}

	mesh := &kernel.MeshData{
		Vertices:    make([]float64, 0, 3*len(s.verts)),
		Faces:       make([]int, 0, 3*len(s.tris)),
		Normals:     make([]float64, 3*len(s.verts)),
		VertexCount: len(s.verts),
		FaceCount:   len(s.tris),
		Quality:     deflection,
	}
	for _, v := range s.verts {
		mesh.Vertices = append(mesh.Vertices, v.X, v.Y, v.Z)
	}

	// Per-vertex normals from area-weighted accumulation of triangle normals.
	acc := make([]geom.Vec3, len(s.verts))
	for _, t := range s.tris {
		mesh.Faces = append(mesh.Faces, t[0], t[1], t[2])
		a, bb, c := s.verts[t[0]], s.verts[t[1]], s.verts[t[2]]
		tn := bb.Sub(a).Cross(c.Sub(a))
		for _, idx := range t {
			acc[idx] = acc[idx].Add(tn)
		}
	}
	for i, n := range acc {
		u := n.Normalized()
		mesh.Normals[3*i] = u.X
		mesh.Normals[3*i+1] = u.Y
		mesh.Normals[3*i+2] = u.Z
	}
	return mesh, nil
}

// Validate checks topological sanity of a shape: a non-empty mesh with all
// triangle indices in range and finite vertex coordinates.
func (b *Backend) Validate(ks kernel.Shape) bool {
	s, ok := ks.(*solid)
	if !ok || len(s.verts) == 0 || len(s.tris) == 0 {
		return false
	}
	for _, v := range s.verts {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) ||
			math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) || math.IsInf(v.Z, 0) {
			return false
		}
	}
	for _, t := range s.tris {
		for _, idx := range t {
			if idx < 0 || idx >= len(s.verts) {
				return false
			}
		}
	}
	return true
}
