package surfacenets

import "github.com/chazu/surfnets/pkg/volume"

// rowBuffer holds one interleaved row pair: index 2z is the sample at slice
// x, index 2z+1 the sample at slice x+1.
type rowBuffer [2 * volume.Size]int8

// signBit is 1 for negative samples.
func signBit(v int8) uint32 {
	return uint32(uint8(v) >> 7)
}

// loadRow interleaves rows (x, y) and (x+1, y) into dst and returns their
// sign masks. Bit 31−z of each mask holds the sign of sample z, so shifting
// a mask left walks it along z and bit 31 is always the current sample.
func loadRow(data []int8, dst *rowBuffer, x, y int) (near, far uint32) {
	base := x<<volume.XShift | y<<volume.YShift
	a := data[base : base+volume.Size]
	b := data[base+volume.Size*volume.Size : base+volume.Size*volume.Size+volume.Size]

	for z := 0; z < volume.Size; z++ {
		va, vb := a[z], b[z]
		dst[2*z] = va
		dst[2*z+1] = vb
		near |= signBit(va) << (31 - z)
		far |= signBit(vb) << (31 - z)
	}
	return near, far
}

// uniformColumn reports whether four row masks agree on every bit and are
// all ones or all zeros, in which case no cell of the 2×2 column crosses
// the surface.
func uniformColumn(m0, m1, m2, m3 uint32) bool {
	return m0&m1&m2&m3 == ^uint32(0) || m0|m1|m2|m3 == 0
}

// topBits gathers the sign of the current z sample from each row:
// bit 0 (x, y), bit 1 (x+1, y), bit 2 (x, y+1), bit 3 (x+1, y+1).
func topBits(m0, m1, m2, m3 uint32) uint32 {
	return m0>>31 | m1>>31<<1 | m2>>31<<2 | m3>>31<<3
}

// scan walks every interior cell of data and meshes the active ones.
func (m *Mesher) scan(data []int8) {
	lower, upper := &m.rows[0], &m.rows[1]
	var m0, m1, m2, m3 uint32
	var samples [8]float32

	for x := 0; x < volume.SizeMinusOne; x++ {
		m2, m3 = loadRow(data, upper, x, 0)

		for y := 0; y < volume.SizeMinusOne; y++ {
			// Last step's upper row is this step's lower row.
			lower, upper = upper, lower
			m0, m1 = m2, m3
			m2, m3 = loadRow(data, upper, x, y+1)

			if uniformColumn(m0, m1, m2, m3) {
				continue
			}

			c0, c1, c2, c3 := m0, m1, m2, m3
			corner := topBits(c0, c1, c2, c3) << 4

			for z := 0; z < volume.SizeMinusOne; z++ {
				// Low nibble: corners at z. High nibble: corners at z+1.
				corner >>= 4
				c0 <<= 1
				c1 <<= 1
				c2 <<= 1
				c3 <<= 1
				corner |= topBits(c0, c1, c2, c3) << 4

				if corner == 0 || corner == 0xff {
					continue
				}

				zz := 2 * z
				samples[0] = float32(lower[zz])
				samples[1] = float32(lower[zz+1])
				samples[2] = float32(upper[zz])
				samples[3] = float32(upper[zz+1])
				samples[4] = float32(lower[zz+2])
				samples[5] = float32(lower[zz+3])
				samples[6] = float32(upper[zz+2])
				samples[7] = float32(upper[zz+3])

				m.meshCell([3]int{x, y, z}, &samples, uint8(corner))
			}
		}
	}
}
