// Package kernel defines the solid modelling interface that feeds the
// mesher. Solids are signed distance fields; a kernel builds and combines
// them and turns them into triangle meshes through the surface nets
// tessellator. The abstraction allows swapping the SDF backend without
// touching the rest of the system.
package kernel

import "context"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Evaluate returns the signed distance at p, negative inside.
	Evaluate(p [3]float64) float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Sphere(radius float64) Solid
	Box(x, y, z, round float64) Solid
	Cylinder(height, radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// ContextMesher is implemented by kernels whose meshing can be cancelled.
type ContextMesher interface {
	ToMeshContext(ctx context.Context, s Solid) (*Mesh, error)
}
