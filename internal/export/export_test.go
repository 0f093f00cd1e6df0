package export

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticecad/lattice/internal/kernel"
	"github.com/latticecad/lattice/pkg/model"
)

// unitTriangleMesh is a single triangle in the XY plane with +Z normals.
func unitTriangleMesh() *kernel.MeshData {
	return &kernel.MeshData{
		Vertices:    []float64{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Faces:       []int{0, 1, 2},
		Normals:     []float64{0, 0, 1, 0, 0, 1, 0, 0, 1},
		VertexCount: 3,
		FaceCount:   1,
	}
}

func TestWriteSTLBinary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, unitTriangleMesh(), FormatSTL))

	// 80-byte header, 4-byte count, one 50-byte facet record.
	require.Equal(t, 80+4+50, buf.Len())

	data := buf.Bytes()
	count := binary.LittleEndian.Uint32(data[80:84])
	assert.Equal(t, uint32(1), count)

	// Facet normal is +Z.
	nz := binary.LittleEndian.Uint32(data[84+8 : 84+12])
	assert.Equal(t, uint32(0x3f800000), nz)
}

func TestWriteSTLASCII(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, unitTriangleMesh(), FormatSTLASCII))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "solid lattice"))
	assert.Contains(t, out, "facet normal 0 0 1")
	assert.Contains(t, out, "vertex 1 0 0")
	assert.Contains(t, out, "endsolid lattice")
	assert.Equal(t, 1, strings.Count(out, "endfacet"))
}

func TestWriteOBJ(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, unitTriangleMesh(), FormatOBJ))

	out := buf.String()
	assert.Contains(t, out, "v 0 0 0\n")
	assert.Contains(t, out, "v 1 0 0\n")
	assert.Contains(t, out, "vn 0 0 1\n")
	// Indices are 1-based.
	assert.Contains(t, out, "f 1//1 2//2 3//3\n")
}

func TestWriteOBJWithoutNormals(t *testing.T) {
	mesh := unitTriangleMesh()
	mesh.Normals = nil

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, mesh, FormatOBJ))
	assert.Contains(t, buf.String(), "f 1 2 3\n")
	assert.NotContains(t, buf.String(), "vn ")
}

func TestWriteUnsupportedFormats(t *testing.T) {
	for _, format := range []Format{FormatSTEP, FormatIGES, Format("dxf")} {
		var buf bytes.Buffer
		err := Write(&buf, unitTriangleMesh(), format)
		assert.ErrorIs(t, err, model.ErrInvalidParameters, "format %s", format)
		assert.Zero(t, buf.Len())
	}
}

func TestWriteEmptyMesh(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, &kernel.MeshData{}, FormatSTL)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)

	err = Write(&buf, nil, FormatOBJ)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}
