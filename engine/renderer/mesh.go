package renderer

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const (
	MeshSphere = "sphere"
	MeshCube   = "cube"

	// The sky sphere: 20 bands of 10 vertices.
	SphereBands    = 20
	SphereSegments = 10
	SphereRadius   = 1.2
	CubeHalfExtent = 0.5
)

var (
	PositionLayout = metadata.InputLayout{
		Stride: 12,
		Elements: []metadata.InputElement{
			{Semantic: "POSITION", Location: 0, Format: metadata.FormatR32G32B32Float, Offset: 0},
		},
	}
	TexturedLayout = metadata.InputLayout{
		Stride: 20,
		Elements: []metadata.InputElement{
			{Semantic: "POSITION", Location: 0, Format: metadata.FormatR32G32B32Float, Offset: 0},
			{Semantic: "TEXCOORD", Location: 1, Format: metadata.FormatR32G32Float, Offset: 12},
		},
	}
)

// Mesh is an immutable pair of vertex and index buffers.
type Mesh struct {
	Name       string
	Vertices   *metadata.Buffer
	Indices    *metadata.Buffer
	IndexCount uint32
	Layout     metadata.InputLayout
}

func (m *Mesh) Release() {
	if m == nil {
		return
	}
	m.Indices.Release()
	m.Vertices.Release()
}

// NewMesh uploads data into immutable buffers.
func NewMesh(device metadata.Device, data *metadata.MeshData) (*Mesh, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("mesh %s is empty", data.Name)
	}
	vb, err := device.CreateBuffer(metadata.BufferDesc{
		Label:  data.Name + " vertices",
		Size:   uint64(len(data.Vertices)),
		Usage:  metadata.UsageImmutable,
		Bind:   metadata.BindVertexBuffer,
		Stride: data.Layout.Stride,
	}, data.Vertices)
	if err != nil {
		return nil, err
	}
	indices, err := binary.Append(nil, binary.LittleEndian, data.Indices)
	if err != nil {
		vb.Release()
		return nil, err
	}
	ib, err := device.CreateBuffer(metadata.BufferDesc{
		Label:  data.Name + " indices",
		Size:   uint64(len(indices)),
		Usage:  metadata.UsageImmutable,
		Bind:   metadata.BindIndexBuffer,
		Stride: metadata.IndexFormatUint16.Size(),
	}, indices)
	if err != nil {
		vb.Release()
		return nil, err
	}
	return &Mesh{
		Name:       data.Name,
		Vertices:   vb,
		Indices:    ib,
		IndexCount: uint32(len(data.Indices)),
		Layout:     data.Layout,
	}, nil
}

// SphereMeshData is the sky sphere. Its triangles face inward.
func SphereMeshData() (*metadata.MeshData, error) {
	vertices, indices := math.GenerateSphere(SphereBands, SphereSegments, SphereRadius)
	raw, err := binary.Append(nil, binary.LittleEndian, vertices)
	if err != nil {
		return nil, err
	}
	return &metadata.MeshData{
		Name:        MeshSphere,
		Vertices:    raw,
		VertexCount: uint32(len(vertices)),
		Indices:     indices,
		Layout:      PositionLayout,
	}, nil
}

func CubeMeshData() (*metadata.MeshData, error) {
	vertices, indices := math.GenerateCube(CubeHalfExtent)
	raw, err := binary.Append(nil, binary.LittleEndian, vertices)
	if err != nil {
		return nil, err
	}
	return &metadata.MeshData{
		Name:        MeshCube,
		Vertices:    raw,
		VertexCount: uint32(len(vertices)),
		Indices:     indices,
		Layout:      TexturedLayout,
	}, nil
}
