package surfacenets

import "github.com/chazu/surfnets/pkg/volume"

// NormalScale converts summed corner differences into a gradient normal.
// Samples span ±127; the sign flip makes normals point out of solid space.
const NormalScale = -0.002

// crossing returns where the surface cuts the edge between samples s0 and
// s1 as a fraction of the edge length. Integer samples on a crossed edge
// never compare equal, but the result is kept finite and inside the edge
// for any input: equal samples give the midpoint, anything else is clamped
// to [0, 1].
func crossing(s0, s1 float32) float32 {
	d := s0 - s1
	if d == 0 {
		return 0.5
	}
	t := s0 / d
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// vertexOffset places a vertex inside the unit cell at the mean of the
// crossings on every edge flagged in edgeMask.
func (t *EdgeTable) vertexOffset(s *[8]float32, edgeMask uint16) [3]float32 {
	var sum [3]float32
	n := 0
	for e := 0; e < 12; e++ {
		if edgeMask&(1<<e) == 0 {
			continue
		}
		c := t.edges[e]
		p := t.origins[e]
		p[t.axes[e]] += crossing(s[c[0]], s[c[1]])
		sum[0] += p[0]
		sum[1] += p[1]
		sum[2] += p[2]
		n++
	}
	if n == 0 {
		return [3]float32{0.5, 0.5, 0.5}
	}
	k := float32(n)
	return [3]float32{sum[0] / k, sum[1] / k, sum[2] / k}
}

// gradientNormal estimates the field gradient from the eight corners, one
// axis at a time as the sum of the four differences along that axis.
func gradientNormal(s *[8]float32) [3]float32 {
	var n [3]float32
	n[0] = (s[1] - s[0]) + (s[3] - s[2]) + (s[5] - s[4]) + (s[7] - s[6])
	n[1] = (s[2] - s[0]) + (s[3] - s[1]) + (s[6] - s[4]) + (s[7] - s[5])
	n[2] = (s[4] - s[0]) + (s[5] - s[1]) + (s[6] - s[2]) + (s[7] - s[3])
	n[0] *= NormalScale
	n[1] *= NormalScale
	n[2] *= NormalScale
	return n
}

// meshCell emits the vertex of an active cell, records it in the scratch
// grid and stitches it to the already emitted neighbours.
func (m *Mesher) meshCell(pos [3]int, s *[8]float32, corner uint8) {
	edgeMask := m.table.masks[corner]
	slot, strides := scratchSlot(pos)

	m.buffer[slot] = uint32(len(m.vertices))

	off := m.table.vertexOffset(s, edgeMask)
	v := Vertex{
		Position: [3]float32{
			float32(pos[0]) + off[0],
			float32(pos[1]) + off[1],
			float32(pos[2]) + off[2],
		},
	}
	if !m.recalculate {
		v.Normal = gradientNormal(s)
	}
	m.vertices = append(m.vertices, v)
	m.cells = append(m.cells, uint16(volume.Index(pos[0], pos[1], pos[2])))
	m.bounds.Encapsulate(v.Position)

	// Corner 0 inside or outside decides which way the quads face.
	m.stitch(pos, slot, strides, edgeMask, corner&1 != 0)
}
