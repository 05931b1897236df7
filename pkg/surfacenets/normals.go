package surfacenets

import "github.com/chewxy/math32"

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func finite(v [3]float32) bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func addTo(dst *[3]float32, v [3]float32) {
	dst[0] += v[0]
	dst[1] += v[1]
	dst[2] += v[2]
}

// recalculateNormals replaces vertex normals with the unnormalised sum of
// the face normals around each vertex. Every 6 indices form a quad whose
// two triangles share their first two vertices, so a quad touches indices
// i, i+1, i+2 and i+4.
func (m *Mesher) recalculateNormals() {
	vs := m.vertices
	ix := m.indices

	for i := 0; i+5 < len(ix); i += 6 {
		i0, i1, i2, i3 := ix[i], ix[i+1], ix[i+2], ix[i+4]
		p0 := vs[i0].Position

		t0 := sub(vs[i1].Position, p0)
		t1 := sub(vs[i2].Position, p0)
		t2 := sub(vs[i3].Position, p0)

		n0 := cross(t0, t1)
		n1 := cross(t2, t0)
		if !finite(n0) {
			n0 = [3]float32{}
		}
		if !finite(n1) {
			n1 = [3]float32{}
		}

		addTo(&vs[i0].Normal, n0)
		addTo(&vs[i0].Normal, n1)
		addTo(&vs[i1].Normal, n0)
		addTo(&vs[i1].Normal, n1)
		addTo(&vs[i2].Normal, n0)
		addTo(&vs[i3].Normal, n1)
	}
}
