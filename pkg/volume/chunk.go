// Package volume holds the fixed-size density grids consumed by the
// surface nets mesher. A chunk is a cube of signed 8-bit samples where the
// sign marks inside (positive) or outside (negative) and the magnitude only
// needs to be monotonic near the surface.
package volume

// Chunk geometry. The mesher's row scanning is built around 32-sample rows,
// so Size is not a tunable.
const (
	Size         = 32
	SizeMinusOne = Size - 1
	XShift       = 10
	YShift       = 5
	ZShift       = 0

	// Len is the number of samples in a Size³ chunk.
	Len = Size * Size * Size
)

// Chunk is a cubic grid of density samples flattened with strides
// (Size², Size, 1) along (x, y, z).
type Chunk struct {
	Size int
	Data []int8
}

// New allocates a zeroed chunk of the reference size.
func New() *Chunk {
	return NewSized(Size)
}

// NewSized allocates a zeroed n³ chunk. Only chunks of edge length Size can
// be meshed; other sizes exist for callers that resample or store volumes.
func NewSized(n int) *Chunk {
	return &Chunk{
		Size: n,
		Data: make([]int8, n*n*n),
	}
}

// Index returns the flat offset of (x, y, z) in a reference-size chunk.
func Index(x, y, z int) int {
	return x<<XShift | y<<YShift | z<<ZShift
}

// index returns the flat offset of (x, y, z) for this chunk's size.
func (c *Chunk) index(x, y, z int) int {
	return (x*c.Size+y)*c.Size + z
}

// At returns the sample at (x, y, z).
func (c *Chunk) At(x, y, z int) int8 {
	return c.Data[c.index(x, y, z)]
}

// Set stores v at (x, y, z).
func (c *Chunk) Set(x, y, z int, v int8) {
	c.Data[c.index(x, y, z)] = v
}

// Fill sets every sample to v.
func (c *Chunk) Fill(v int8) {
	for i := range c.Data {
		c.Data[i] = v
	}
}

// FillFunc sets every sample from f, visiting x, then y, then z.
func (c *Chunk) FillFunc(f func(x, y, z int) int8) {
	i := 0
	for x := 0; x < c.Size; x++ {
		for y := 0; y < c.Size; y++ {
			for z := 0; z < c.Size; z++ {
				c.Data[i] = f(x, y, z)
				i++
			}
		}
	}
}

// Uniform reports whether every sample has the same sign. A uniform chunk
// produces no surface.
func (c *Chunk) Uniform() bool {
	if len(c.Data) == 0 {
		return true
	}
	neg := c.Data[0] < 0
	for _, v := range c.Data[1:] {
		if (v < 0) != neg {
			return false
		}
	}
	return true
}
