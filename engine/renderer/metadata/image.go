package metadata

import "fmt"

// TextureData is a decoded texture ready for upload: every mip of every slice,
// slice major.
type TextureData struct {
	Name         string
	Desc         TextureDesc
	Subresources []SubresourceData
}

func (t *TextureData) Validate() error {
	if t.Desc.Width == 0 || t.Desc.Height == 0 {
		return fmt.Errorf("texture %s has no extent", t.Name)
	}
	if t.Desc.Cube && t.Desc.ArraySize != 6 {
		return fmt.Errorf("cube texture %s has %d faces", t.Name, t.Desc.ArraySize)
	}
	if uint32(len(t.Subresources)) != t.Desc.SubresourceCount() {
		return fmt.Errorf("texture %s has %d subresources, expected %d",
			t.Name, len(t.Subresources), t.Desc.SubresourceCount())
	}
	return nil
}

// MeshData is CPU side geometry. Vertices are tightly packed with Layout.Stride.
type MeshData struct {
	Name        string
	Vertices    []byte
	VertexCount uint32
	Indices     []uint16
	Layout      InputLayout
}

// ShaderSource is one WGSL file holding both stage entry points.
type ShaderSource struct {
	Name     string
	Path     string
	Source   string
	VSEntry  string
	PSEntry  string
	Compiled []uint32
}
