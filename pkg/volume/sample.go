package volume

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Field is a signed distance function, negative inside. sdf.SDF3 satisfies it.
type Field interface {
	Evaluate(p v3.Vec) float64
}

// FieldFunc adapts a plain function to Field.
type FieldFunc func(p v3.Vec) float64

// Evaluate calls f(p).
func (f FieldFunc) Evaluate(p v3.Vec) float64 {
	return f(p)
}

// Quantize converts a signed distance measured in cells into a density
// sample. Distances are clamped to one cell either side of the surface and
// the sign is flipped so solid space is positive. A sample never rounds to
// zero: points on the surface count as outside and points just inside get
// 1, so a crossed edge always has a nonzero sample at both ends. NaN is
// treated as far outside.
func Quantize(d float64) int8 {
	if math.IsNaN(d) {
		return -127
	}
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	v := int8(d * -127)
	if v == 0 {
		if d < 0 {
			return 1
		}
		return -1
	}
	return v
}

// Sample fills the chunk by evaluating f at origin + (x, y, z)*cellSize.
// The chunk is completely written when Sample returns.
func (c *Chunk) Sample(f Field, origin v3.Vec, cellSize float64) {
	c.SampleGrid(f, origin, [3]int{}, cellSize)
}

// SampleGrid fills the chunk from a larger lattice: sample (x, y, z) is
// taken at origin + (offset + (x, y, z))*cellSize. Chunks cut from the same
// lattice evaluate bit-identical points wherever they overlap.
func (c *Chunk) SampleGrid(f Field, origin v3.Vec, offset [3]int, cellSize float64) {
	inv := 1 / cellSize
	i := 0
	for x := 0; x < c.Size; x++ {
		px := origin.X + float64(offset[0]+x)*cellSize
		for y := 0; y < c.Size; y++ {
			py := origin.Y + float64(offset[1]+y)*cellSize
			for z := 0; z < c.Size; z++ {
				p := v3.Vec{X: px, Y: py, Z: origin.Z + float64(offset[2]+z)*cellSize}
				c.Data[i] = Quantize(f.Evaluate(p) * inv)
				i++
			}
		}
	}
}
