// Package tessellate walks a scene graph and produces triangle meshes
// using a geometry kernel. One mesh is produced per part.
package tessellate

import (
	"context"
	"fmt"

	"github.com/chazu/surfnets/pkg/graph"
	"github.com/chazu/surfnets/pkg/kernel"
)

// transformStack accumulates placements during graph traversal, outermost
// first.
type transformStack struct {
	placements []graph.TransformData
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) push(td graph.TransformData) {
	ts.placements = append(ts.placements, td)
}

func (ts *transformStack) pop() {
	if len(ts.placements) > 0 {
		ts.placements = ts.placements[:len(ts.placements)-1]
	}
}

// apply places s by every transform on the stack, innermost first.
func (ts *transformStack) apply(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	for i := len(ts.placements) - 1; i >= 0; i-- {
		s = place(k, s, ts.placements[i])
	}
	return s
}

// place applies one transform: rotation first, then translation.
func place(k kernel.Kernel, s kernel.Solid, td graph.TransformData) kernel.Solid {
	if r := td.Rotation; r != nil && !r.IsZero() {
		s = k.Rotate(s, r.X, r.Y, r.Z)
	}
	if t := td.Translation; t != nil && !t.IsZero() {
		s = k.Translate(s, t.X, t.Y, t.Z)
	}
	return s
}

// part is a solid waiting to be meshed.
type part struct {
	name  string
	solid kernel.Solid
}

// Tessellate walks the scene graph and produces one triangle mesh per part
// using the provided geometry kernel. Parts and bare solids become meshes;
// assemblies and placements above them are walked through. g must be free
// of cycles (see graph.Validate); a cycle met on the walk is returned as an
// error. The tessellator is read-only and never mutates the graph.
func Tessellate(ctx context.Context, g *graph.SceneGraph, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if g == nil {
		return nil, nil
	}

	var parts []part
	ts := newTransformStack()
	path := make(map[graph.NodeID]bool)

	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		collected, err := walkNode(g, k, root, ts, path)
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
		parts = append(parts, collected...)
	}

	meshes := make([]*kernel.Mesh, 0, len(parts))
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("tessellate: %w", err)
		}
		mesh, err := toMesh(ctx, k, p.solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for part %s: %w", p.name, err)
		}
		mesh.PartName = p.name
		Logger().Info("tessellate: part meshed",
			"part", p.name,
			"vertices", mesh.VertexCount(),
			"triangles", mesh.TriangleCount())
		meshes = append(meshes, mesh)
	}

	return meshes, nil
}

func toMesh(ctx context.Context, k kernel.Kernel, s kernel.Solid) (*kernel.Mesh, error) {
	if cm, ok := k.(kernel.ContextMesher); ok {
		return cm.ToMeshContext(ctx, s)
	}
	return k.ToMesh(s)
}

// walkNode recursively traverses a node and its children, collecting parts.
// path holds the assemblies and placements above n.
func walkNode(g *graph.SceneGraph, k kernel.Kernel, n *graph.Node, ts *transformStack, path map[graph.NodeID]bool) ([]part, error) {
	if path[n.ID] {
		return nil, fmt.Errorf("cycle through node %s", n.ID.Short())
	}

	switch n.Kind {
	case graph.NodeGroup:
		if n.IsPart() {
			return handleSolid(g, k, n, ts)
		}
		path[n.ID] = true
		defer delete(path, n.ID)
		return handleGroup(g, k, n, ts, path)

	case graph.NodeTransform:
		path[n.ID] = true
		defer delete(path, n.ID)
		return handleTransform(g, k, n, ts, path)

	case graph.NodePrimitive, graph.NodeBoolean:
		return handleSolid(g, k, n, ts)

	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

// handleSolid turns n into one placed part.
func handleSolid(g *graph.SceneGraph, k kernel.Kernel, n *graph.Node, ts *transformStack) ([]part, error) {
	s, err := buildSolid(g, k, n, make(map[graph.NodeID]bool))
	if err != nil {
		return nil, err
	}

	// Set the part name: prefer the node's Name, fall back to short ID.
	name := n.Name
	if name == "" {
		name = n.ID.Short()
	}
	return []part{{name: name, solid: ts.apply(k, s)}}, nil
}

// handleTransform pushes the transform, recurses into children, then pops.
func handleTransform(g *graph.SceneGraph, k kernel.Kernel, n *graph.Node, ts *transformStack, path map[graph.NodeID]bool) ([]part, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}

	ts.push(td)
	defer ts.pop()

	var parts []part
	for _, child := range g.Children(n) {
		collected, err := walkNode(g, k, child, ts, path)
		if err != nil {
			return nil, err
		}
		parts = append(parts, collected...)
	}
	return parts, nil
}

// handleGroup recurses into children transparently.
func handleGroup(g *graph.SceneGraph, k kernel.Kernel, n *graph.Node, ts *transformStack, path map[graph.NodeID]bool) ([]part, error) {
	var parts []part
	for _, child := range g.Children(n) {
		collected, err := walkNode(g, k, child, ts, path)
		if err != nil {
			return nil, err
		}
		parts = append(parts, collected...)
	}
	return parts, nil
}

// buildSolid returns the kernel solid for the subtree at n. Groups and
// multi-child transforms union their children.
func buildSolid(g *graph.SceneGraph, k kernel.Kernel, n *graph.Node, path map[graph.NodeID]bool) (kernel.Solid, error) {
	if path[n.ID] {
		return nil, fmt.Errorf("cycle through node %s", n.ID.Short())
	}
	path[n.ID] = true
	defer delete(path, n.ID)

	if n.Kind == graph.NodePrimitive {
		switch d := n.Data.(type) {
		case graph.SphereData:
			return k.Sphere(d.Radius), nil
		case graph.BoxData:
			return k.Box(d.Size.X, d.Size.Y, d.Size.Z, d.Round), nil
		case graph.CylinderData:
			return k.Cylinder(d.Height, d.Radius), nil
		default:
			return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
		}
	}

	children := g.Children(n)
	if len(children) == 0 {
		return nil, fmt.Errorf("%s node %s has no children", n.Kind, n.ID.Short())
	}
	solids := make([]kernel.Solid, 0, len(children))
	for _, c := range children {
		s, err := buildSolid(g, k, c, path)
		if err != nil {
			return nil, err
		}
		solids = append(solids, s)
	}

	switch d := n.Data.(type) {
	case graph.BooleanData:
		return combine(k, d.Op, solids)
	case graph.TransformData:
		s, _ := combine(k, graph.OpUnion, solids)
		return place(k, s, d), nil
	case graph.GroupData:
		return combine(k, graph.OpUnion, solids)
	default:
		return nil, fmt.Errorf("%s node %s has unexpected data type %T", n.Kind, n.ID.Short(), n.Data)
	}
}

// combine folds solids left to right with op.
func combine(k kernel.Kernel, op graph.BooleanOp, solids []kernel.Solid) (kernel.Solid, error) {
	s := solids[0]
	for _, o := range solids[1:] {
		switch op {
		case graph.OpUnion:
			s = k.Union(s, o)
		case graph.OpDifference:
			s = k.Difference(s, o)
		case graph.OpIntersection:
			s = k.Intersection(s, o)
		default:
			return nil, fmt.Errorf("unknown boolean op %v", op)
		}
	}
	return s, nil
}
