package surfacenets

import "github.com/chewxy/math32"

// Bounds is an axis-aligned box grown one point at a time. The zero value
// is empty.
type Bounds struct {
	Min, Max [3]float32
	valid    bool
}

// Empty reports whether no point has been added.
func (b Bounds) Empty() bool {
	return !b.valid
}

// Reset returns the box to the empty state.
func (b *Bounds) Reset() {
	*b = Bounds{}
}

// Encapsulate grows the box to contain p.
func (b *Bounds) Encapsulate(p [3]float32) {
	if !b.valid {
		b.Min, b.Max = p, p
		b.valid = true
		return
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
}

// Center returns the midpoint of the box. An empty box has its center at
// the origin.
func (b Bounds) Center() [3]float32 {
	if !b.valid {
		return [3]float32{}
	}
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Extent returns the edge lengths of the box.
func (b Bounds) Extent() [3]float32 {
	if !b.valid {
		return [3]float32{}
	}
	return sub(b.Max, b.Min)
}

// Contains reports whether p lies inside or on the box.
func (b Bounds) Contains(p [3]float32) bool {
	if !b.valid {
		return false
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}
