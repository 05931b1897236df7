package graph

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// SphereData is a sphere centred on the origin.
type SphereData struct {
	Radius float64 `json:"radius"`
}

func (SphereData) nodeData() {}

// BoxData is a box with its minimum corner at the origin, so that
// (place (box ...) :at v) puts the corner at v.
type BoxData struct {
	Size  Vec3    `json:"size"`
	Round float64 `json:"round,omitempty"` // edge rounding radius
}

func (BoxData) nodeData() {}

// CylinderData is a cylinder along Z, centred on the origin.
type CylinderData struct {
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
}

func (CylinderData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData places its children. Rotation is applied before
// translation. Created by the (place ...) form.
type TransformData struct {
	Translation *Vec3 `json:"translation,omitempty"`
	Rotation    *Vec3 `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BooleanOp enumerates the CSG operations.
type BooleanOp int

const (
	OpUnion BooleanOp = iota
	OpDifference
	OpIntersection
)

func (op BooleanOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// BooleanData combines the children in order. A difference subtracts every
// later child from the first.
type BooleanData struct {
	Op BooleanOp `json:"op"`
}

func (BooleanData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData gathers children. A part group (defpart) is tessellated as the
// union of its children; an assembly group (group) is transparent and each
// child keeps its own mesh.
type GroupData struct {
	Part        bool   `json:"part"`
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
