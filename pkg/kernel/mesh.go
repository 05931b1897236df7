package kernel

import "github.com/chewxy/math32"

// Mesh is a triangle mesh suitable for rendering or export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
// Normals are not guaranteed to be unit length; see NormalizeNormals.
type Mesh struct {
	Vertices []float32  `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32  `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32   `json:"indices"`  // [i0,i1,i2, ...] triangles
	Min      [3]float32 `json:"min"`      // bounding box, valid when not empty
	Max      [3]float32 `json:"max"`
	PartName string     `json:"partName"` // which scene part this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Position returns vertex i.
func (m *Mesh) Position(i uint32) [3]float32 {
	j := 3 * i
	return [3]float32{m.Vertices[j], m.Vertices[j+1], m.Vertices[j+2]}
}

// Append adds the geometry of o to m, rebasing o's indices and growing
// the bounding box.
func (m *Mesh) Append(o *Mesh) {
	if o == nil || o.IsEmpty() {
		return
	}
	if m.IsEmpty() {
		m.Min, m.Max = o.Min, o.Max
	} else {
		for i := 0; i < 3; i++ {
			m.Min[i] = math32.Min(m.Min[i], o.Min[i])
			m.Max[i] = math32.Max(m.Max[i], o.Max[i])
		}
	}

	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, o.Vertices...)
	m.Normals = append(m.Normals, o.Normals...)
	for _, ix := range o.Indices {
		m.Indices = append(m.Indices, base+ix)
	}
}

// NormalizeNormals scales every normal to unit length. Zero normals stay zero.
func (m *Mesh) NormalizeNormals() {
	n := m.Normals
	for i := 0; i+2 < len(n); i += 3 {
		l := math32.Sqrt(n[i]*n[i] + n[i+1]*n[i+1] + n[i+2]*n[i+2])
		if l == 0 || math32.IsNaN(l) || math32.IsInf(l, 0) {
			continue
		}
		n[i] /= l
		n[i+1] /= l
		n[i+2] /= l
	}
}
