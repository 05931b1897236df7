package surfacenets

import (
	"math/bits"
	"sync"
)

// EdgeTable maps an 8-bit corner sign mask to a 12-bit mask of the cube
// edges whose endpoints differ in sign. Corner i sits at
// (i&1, i>>1&1, i>>2&1). A table is immutable after construction.
type EdgeTable struct {
	masks   [256]uint16
	edges   [12][2]uint8
	axes    [12]uint8
	origins [12][3]float32
}

// NewEdgeTable builds the table. Edges are enumerated by pairing each corner
// with the corner one axis step away, keeping the pair only when the lower
// corner comes first, which yields x, y, z edges of corner 0 as edges 0..2.
func NewEdgeTable() *EdgeTable {
	t := &EdgeTable{}

	k := 0
	for i := 0; i < 8; i++ {
		for j := 1; j <= 4; j <<= 1 {
			p := i ^ j
			if i > p {
				continue
			}
			t.edges[k] = [2]uint8{uint8(i), uint8(p)}
			t.axes[k] = uint8(bits.TrailingZeros8(uint8(j)))
			t.origins[k] = [3]float32{float32(i & 1), float32(i >> 1 & 1), float32(i >> 2 & 1)}
			k++
		}
	}

	for m := 0; m < 256; m++ {
		var em uint16
		for e, c := range t.edges {
			if (m>>c[0])&1 != (m>>c[1])&1 {
				em |= 1 << e
			}
		}
		t.masks[m] = em
	}
	return t
}

var defaultEdgeTable = sync.OnceValue(NewEdgeTable)

// DefaultEdgeTable returns the process-wide table. It is built on first use
// and is safe to read from any number of goroutines.
func DefaultEdgeTable() *EdgeTable {
	return defaultEdgeTable()
}

// Lookup returns the edge crossing mask for a corner sign mask.
func (t *EdgeTable) Lookup(cornerMask uint8) uint16 {
	return t.masks[cornerMask]
}

// Edge returns the two corners joined by edge k.
func (t *EdgeTable) Edge(k int) (a, b uint8) {
	return t.edges[k][0], t.edges[k][1]
}
