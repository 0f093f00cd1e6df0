// Package export writes tessellated meshes to interchange formats.
package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/latticecad/lattice/internal/kernel"
	"github.com/latticecad/lattice/pkg/model"
)

// Format identifies a mesh interchange encoding.
type Format string

const (
	FormatSTL      Format = "stl"
	FormatSTLASCII Format = "stl_ascii"
	FormatOBJ      Format = "obj"

	// Recognized but not implemented; exporting them reports an error.
	FormatSTEP Format = "step"
	FormatIGES Format = "iges"
)

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatSTL:
		return "model/stl"
	case FormatSTLASCII:
		return "model/stl"
	case FormatOBJ:
		return "model/obj"
	default:
		return "application/octet-stream"
	}
}

// Write encodes a mesh in the given format. STEP and IGES require a real
// boundary representation, not a triangulation, and are reported as
// unsupported.
func Write(w io.Writer, mesh *kernel.MeshData, format Format) error {
	if mesh == nil || mesh.FaceCount == 0 {
		return fmt.Errorf("%w: mesh is empty", model.ErrInvalidParameters)
	}

	switch format {
	case FormatSTL:
		return writeSTLBinary(w, mesh)
	case FormatSTLASCII:
		return writeSTLASCII(w, mesh)
	case FormatOBJ:
		return writeOBJ(w, mesh)
	case FormatSTEP, FormatIGES:
		return fmt.Errorf("%w: %s export is not supported", model.ErrInvalidParameters, format)
	default:
		return fmt.Errorf("%w: unknown export format %q", model.ErrInvalidParameters, format)
	}
}

// triangle returns the three vertices of face i as packed coordinates.
func triangle(mesh *kernel.MeshData, i int) [3][3]float64 {
	var tri [3][3]float64
	for c := 0; c < 3; c++ {
		v := mesh.Faces[i*3+c]
		tri[c] = [3]float64{
			mesh.Vertices[v*3],
			mesh.Vertices[v*3+1],
			mesh.Vertices[v*3+2],
		}
	}
	return tri
}

// faceNormal computes the unit normal of one triangle. Degenerate triangles
// get a zero normal, which both STL encodings tolerate.
func faceNormal(tri [3][3]float64) [3]float64 {
	ux := tri[1][0] - tri[0][0]
	uy := tri[1][1] - tri[0][1]
	uz := tri[1][2] - tri[0][2]
	vx := tri[2][0] - tri[0][0]
	vy := tri[2][1] - tri[0][1]
	vz := tri[2][2] - tri[0][2]

	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx
	length := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if length < 1e-12 {
		return [3]float64{}
	}
	return [3]float64{nx / length, ny / length, nz / length}
}

func writeSTLBinary(w io.Writer, mesh *kernel.MeshData) error {
	var header [80]byte
	copy(header[:], "lattice binary stl")
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(mesh.FaceCount)); err != nil {
		return err
	}

	var record [50]byte
	for i := 0; i < mesh.FaceCount; i++ {
		tri := triangle(mesh, i)
		n := faceNormal(tri)

		off := 0
		put := func(v float64) {
			binary.LittleEndian.PutUint32(record[off:], math.Float32bits(float32(v)))
			off += 4
		}
		put(n[0])
		put(n[1])
		put(n[2])
		for _, p := range tri {
			put(p[0])
			put(p[1])
			put(p[2])
		}
		// Attribute byte count stays zero.
		record[48], record[49] = 0, 0

		if _, err := w.Write(record[:]); err != nil {
			return err
		}
	}
	return nil
}

func writeSTLASCII(w io.Writer, mesh *kernel.MeshData) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "solid lattice")
	for i := 0; i < mesh.FaceCount; i++ {
		tri := triangle(mesh, i)
		n := faceNormal(tri)
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", n[0], n[1], n[2])
		fmt.Fprintln(bw, "    outer loop")
		for _, p := range tri {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", p[0], p[1], p[2])
		}
		fmt.Fprintln(bw, "    endloop")
		fmt.Fprintln(bw, "  endfacet")
	}
	fmt.Fprintln(bw, "endsolid lattice")
	return bw.Flush()
}

func writeOBJ(w io.Writer, mesh *kernel.MeshData) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# exported by lattice")

	for i := 0; i < mesh.VertexCount; i++ {
		fmt.Fprintf(bw, "v %g %g %g\n", mesh.Vertices[i*3], mesh.Vertices[i*3+1], mesh.Vertices[i*3+2])
	}
	hasNormals := len(mesh.Normals) == mesh.VertexCount*3
	if hasNormals {
		for i := 0; i < mesh.VertexCount; i++ {
			fmt.Fprintf(bw, "vn %g %g %g\n", mesh.Normals[i*3], mesh.Normals[i*3+1], mesh.Normals[i*3+2])
		}
	}

	for i := 0; i < mesh.FaceCount; i++ {
		a, b, c := mesh.Faces[i*3]+1, mesh.Faces[i*3+1]+1, mesh.Faces[i*3+2]+1
		if hasNormals {
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		} else {
			fmt.Fprintf(bw, "f %d %d %d\n", a, b, c)
		}
	}
	return bw.Flush()
}
