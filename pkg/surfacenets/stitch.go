package surfacenets

import "github.com/chazu/surfnets/pkg/volume"

// Scratch grid layout: two (Size+1)² slices, one per x parity. Each slice is
// padded by one row and one column so that the y−1 and z−1 neighbours of
// any cell stay in range.
const (
	scratchRow   = volume.Size + 1
	scratchSlice = scratchRow * scratchRow
	scratchLen   = scratchSlice * 2
	evenBase     = 1 + scratchRow*(volume.Size+2)
	oddBase      = volume.Size + 2
)

// scratchSlot returns the scratch index for the cell at pos and the slot
// strides along x, y and z. Even and odd x live in different slices, so the
// x stride points back at the other slice.
func scratchSlot(pos [3]int) (int, [3]int) {
	strides := [3]int{scratchSlice, scratchRow, 1}
	slot := pos[2] + scratchRow*pos[1]
	if pos[0]%2 == 0 {
		slot += evenBase
	} else {
		strides[0] = -scratchSlice
		slot += oddBase
	}
	return slot, strides
}

// stitch emits a quad for every principal axis whose corner-0 edge crosses
// the surface. The four cells around that edge are this cell and its
// neighbours at −u, −v and −u−v; all of them are active because they share
// the crossed edge, and all have been visited already in raster order.
// Cells on a minimal face of the chunk have no such neighbours and stay open.
func (m *Mesher) stitch(pos [3]int, slot int, strides [3]int, edgeMask uint16, flip bool) {
	b := m.buffer
	for i := 0; i < 3; i++ {
		if edgeMask&(1<<i) == 0 {
			continue
		}

		// The next chunk emits this quad from its first layer.
		if m.shared[i] && pos[i] == volume.Size-2 {
			continue
		}

		iu := (i + 1) % 3
		iv := (i + 2) % 3
		if pos[iu] == 0 || pos[iv] == 0 {
			continue
		}

		du, dv := strides[iu], strides[iv]
		v0 := b[slot]
		vu := b[slot-du]
		vv := b[slot-dv]
		vuv := b[slot-du-dv]

		if flip {
			m.indices = append(m.indices, v0, vuv, vu, v0, vv, vuv)
		} else {
			m.indices = append(m.indices, v0, vuv, vv, v0, vu, vuv)
		}
	}
}
