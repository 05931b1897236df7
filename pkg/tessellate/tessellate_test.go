package tessellate_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/chazu/surfnets/pkg/graph"
	"github.com/chazu/surfnets/pkg/kernel"
	"github.com/chazu/surfnets/pkg/kernel/sdfx"
	"github.com/chazu/surfnets/pkg/tessellate"
)

// newKernel returns an sdfx kernel with a cell size fine enough for the
// small shapes used here.
func newKernel() *sdfx.SdfxKernel {
	o := tessellate.DefaultOptions()
	o.CellSize = 0.25
	o.Workers = 2
	return sdfx.New(sdfx.WithOptions(o))
}

// makeBox creates a box primitive node with the given name and size.
func makeBox(name string, x, y, z float64) *graph.Node {
	return &graph.Node{
		ID:   graph.NewNodeID("box/" + name),
		Kind: graph.NodePrimitive,
		Data: graph.BoxData{Size: graph.Vec3{X: x, Y: y, Z: z}},
	}
}

// makePart wraps children in a named part.
func makePart(name string, children ...graph.NodeID) *graph.Node {
	return &graph.Node{
		ID:       graph.NewNodeID("defpart/" + name),
		Kind:     graph.NodeGroup,
		Name:     name,
		Children: children,
		Data:     graph.GroupData{Part: true},
	}
}

// makePlace creates a transform node. rot may be nil.
func makePlace(name string, at, rot *graph.Vec3, children ...graph.NodeID) *graph.Node {
	return &graph.Node{
		ID:       graph.NewNodeID("place/" + name),
		Kind:     graph.NodeTransform,
		Children: children,
		Data:     graph.TransformData{Translation: at, Rotation: rot},
	}
}

// makeGroup creates an assembly group node with children.
func makeGroup(name string, children ...graph.NodeID) *graph.Node {
	return &graph.Node{
		ID:       graph.NewNodeID("group/" + name),
		Kind:     graph.NodeGroup,
		Name:     name,
		Children: children,
		Data:     graph.GroupData{Description: name},
	}
}

func vec(x, y, z float64) *graph.Vec3 {
	return &graph.Vec3{X: x, Y: y, Z: z}
}

func add(g *graph.SceneGraph, nodes ...*graph.Node) {
	for _, n := range nodes {
		g.AddNode(n)
	}
}

// checkBounds compares the mesh bounds against the solid's box.
func checkBounds(t *testing.T, m *kernel.Mesh, s kernel.Solid, tol float64) {
	t.Helper()
	lo, hi := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(float64(m.Min[i])-lo[i]) > tol || math.Abs(float64(m.Max[i])-hi[i]) > tol {
			t.Errorf("%s: axis %d spans %.3f..%.3f, want %.3f..%.3f",
				m.PartName, i, m.Min[i], m.Max[i], lo[i], hi[i])
		}
	}
}

func TestSinglePart(t *testing.T) {
	k := newKernel()
	g := graph.New()

	box := makeBox("shelf", 4, 2, 1)
	shelf := makePart("shelf", box.ID)
	add(g, box, shelf)
	g.AddRoot(shelf.ID)

	meshes, err := tessellate.Tessellate(context.Background(), g, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}

	m := meshes[0]
	if m.IsEmpty() || m.TriangleCount() == 0 {
		t.Fatal("mesh should not be empty")
	}
	if m.PartName != "shelf" {
		t.Errorf("expected PartName %q, got %q", "shelf", m.PartName)
	}
	checkBounds(t, m, k.Box(4, 2, 1, 0), 0.1)
}

func TestTwoParts(t *testing.T) {
	k := newKernel()
	g := graph.New()

	a := makeBox("a", 2, 2, 2)
	b := makeBox("b", 3, 1, 1)
	side := makePart("side", a.ID)
	top := makePart("top", b.ID)
	add(g, a, b, side, top)
	g.AddRoot(side.ID)
	g.AddRoot(top.ID)

	meshes, err := tessellate.Tessellate(context.Background(), g, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	// Meshes come out in root order.
	if meshes[0].PartName != "side" || meshes[1].PartName != "top" {
		t.Errorf("part order = %q, %q", meshes[0].PartName, meshes[1].PartName)
	}
	for _, m := range meshes {
		if m.IsEmpty() {
			t.Errorf("mesh %q should not be empty", m.PartName)
		}
	}
}

func TestPartWithTransform(t *testing.T) {
	k := newKernel()
	g := graph.New()

	box := makeBox("shelf", 2, 1, 1)
	shelf := makePart("shelf", box.ID)
	place := makePlace("shelf", vec(5, 3, -2), nil, shelf.ID)
	add(g, box, shelf, place)
	g.AddRoot(place.ID)

	meshes, err := tessellate.Tessellate(context.Background(), g, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	// The min corner of the box lands on the placement.
	checkBounds(t, meshes[0], k.Translate(k.Box(2, 1, 1, 0), 5, 3, -2), 0.1)
}

func TestRotateBeforeTranslate(t *testing.T) {
	k := newKernel()
	g := graph.New()

	box := makeBox("bar", 4, 1, 1)
	bar := makePart("bar", box.ID)
	place := makePlace("bar", vec(10, 0, 0), vec(0, 0, 90), bar.ID)
	add(g, box, bar, place)
	g.AddRoot(place.ID)

	meshes, err := tessellate.Tessellate(context.Background(), g, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	want := k.Translate(k.Rotate(k.Box(4, 1, 1, 0), 0, 0, 90), 10, 0, 0)
	checkBounds(t, meshes[0], want, 0.15)
}

func TestNestedTransforms(t *testing.T) {
	k := newKernel()
	g := graph.New()

	box := makeBox("bar", 2, 1, 1)
	bar := makePart("bar", box.ID)
	inner := makePlace("inner", vec(1, 0, 0), vec(0, 0, 90), bar.ID)
	outer := makePlace("outer", nil, vec(0, 0, 90), inner.ID)
	add(g, box, bar, inner, outer)
	g.AddRoot(outer.ID)

	meshes, err := tessellate.Tessellate(context.Background(), g, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	// The inner placement applies first.
	placed := k.Translate(k.Rotate(k.Box(2, 1, 1, 0), 0, 0, 90), 1, 0, 0)
	checkBounds(t, meshes[0], k.Rotate(placed, 0, 0, 90), 0.15)
}

func TestAssembly(t *testing.T) {
	k := newKernel()
	g := graph.New()

	l := makeBox("left", 1, 3, 1)
	r := makeBox("right", 1, 3, 1)
	tp := makeBox("top", 4, 1, 1)
	left := makePart("left-side", l.ID)
	right := makePart("right-side", r.ID)
	top := makePart("top", tp.ID)
	add(g, l, r, tp, left, right, top)

	placeRight := makePlace("right", vec(3, 0, 0), nil, right.ID)
	placeTop := makePlace("top", vec(0, 3, 0), nil, top.ID)
	add(g, placeRight, placeTop)

	inner := makeGroup("frame", left.ID, placeRight.ID)
	shelf := makeGroup("shelf", inner.ID, placeTop.ID)
	lifted := makePlace("shelf", vec(0, 0, 5), nil, shelf.ID)
	add(g, inner, shelf, lifted)
	g.AddRoot(lifted.ID)

	meshes, err := tessellate.Tessellate(context.Background(), g, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 3 {
		t.Fatalf("expected 3 meshes, got %d", len(meshes))
	}

	want := map[string]kernel.Solid{
		"left-side":  k.Translate(k.Box(1, 3, 1, 0), 0, 0, 5),
		"right-side": k.Translate(k.Box(1, 3, 1, 0), 3, 0, 5),
		"top":        k.Translate(k.Box(4, 1, 1, 0), 0, 3, 5),
	}
	for i, name := range []string{"left-side", "right-side", "top"} {
		m := meshes[i]
		if m.PartName != name {
			t.Errorf("mesh %d is %q, want %q", i, m.PartName, name)
			continue
		}
		checkBounds(t, m, want[name], 0.1)
	}
}

func TestBooleanPart(t *testing.T) {
	k := newKernel()
	g := graph.New()

	block := makeBox("block", 4, 4, 2)
	hole := &graph.Node{
		ID:   graph.NewNodeID("cylinder/hole"),
		Kind: graph.NodePrimitive,
		Data: graph.CylinderData{Height: 4, Radius: 1},
	}
	placed := makePlace("hole", vec(2, 2, 1), nil, hole.ID)
	cut := &graph.Node{
		ID:       graph.NewNodeID("difference/1"),
		Kind:     graph.NodeBoolean,
		Children: []graph.NodeID{block.ID, placed.ID},
		Data:     graph.BooleanData{Op: graph.OpDifference},
	}
	part := makePart("plate", cut.ID)
	add(g, block, hole, placed, cut, part)
	g.AddRoot(part.ID)

	meshes, err := tessellate.Tessellate(context.Background(), g, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	m := meshes[0]
	checkBounds(t, m, k.Box(4, 4, 2, 0), 0.1)

	// Some vertex must sit on the bore wall.
	found := false
	for i := 0; i < m.VertexCount(); i++ {
		p := m.Position(uint32(i))
		r := math.Hypot(float64(p[0])-2, float64(p[1])-2)
		if p[2] > 0.5 && p[2] < 1.5 && math.Abs(r-1) < 0.1 {
			found = true
			break
		}
	}
	if !found {
		t.Error("no vertex on the bore wall")
	}
}

func TestBareSolidRootNamedByID(t *testing.T) {
	k := newKernel()
	g := graph.New()

	ball := &graph.Node{
		ID:   graph.NewNodeID("sphere/1"),
		Kind: graph.NodePrimitive,
		Data: graph.SphereData{Radius: 1},
	}
	add(g, ball)
	g.AddRoot(ball.ID)

	meshes, err := tessellate.Tessellate(context.Background(), g, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	if got, want := meshes[0].PartName, ball.ID.Short(); got != want {
		t.Errorf("PartName = %q, want %q", got, want)
	}
}

func TestEmptyGraph(t *testing.T) {
	meshes, err := tessellate.Tessellate(context.Background(), graph.New(), newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected 0 meshes, got %d", len(meshes))
	}
	if meshes, err := tessellate.Tessellate(context.Background(), nil, newKernel()); err != nil || meshes != nil {
		t.Errorf("nil graph: got %v, %v", meshes, err)
	}
}

func TestCycleRejected(t *testing.T) {
	g := graph.New()
	a := makeGroup("a")
	b := makeGroup("b", a.ID)
	a.Children = []graph.NodeID{b.ID}
	part := makePart("loop", a.ID)
	add(g, a, b, part)
	g.AddRoot(part.ID)

	_, err := tessellate.Tessellate(context.Background(), g, newKernel())
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("error = %v, want a cycle error", err)
	}
}

func TestAssemblyCycleRejected(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *graph.SceneGraph) graph.NodeID
	}{
		{"group to group", func(g *graph.SceneGraph) graph.NodeID {
			a := makeGroup("a")
			b := makeGroup("b", a.ID)
			a.Children = []graph.NodeID{b.ID}
			add(g, a, b)
			return a.ID
		}},
		{"group to itself", func(g *graph.SceneGraph) graph.NodeID {
			a := makeGroup("a")
			a.Children = []graph.NodeID{a.ID}
			add(g, a)
			return a.ID
		}},
		{"through a placement", func(g *graph.SceneGraph) graph.NodeID {
			box := makeBox("b", 1, 1, 1)
			part := makePart("b", box.ID)
			grp := makeGroup("g", part.ID)
			at := makePlace("p", vec(1, 0, 0), nil, grp.ID)
			grp.Children = append(grp.Children, at.ID)
			add(g, box, part, grp, at)
			return grp.ID
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.New()
			g.AddRoot(tt.build(g))
			_, err := tessellate.Tessellate(context.Background(), g, newKernel())
			if err == nil || !strings.Contains(err.Error(), "cycle") {
				t.Fatalf("error = %v, want a cycle error", err)
			}
		})
	}
}

func TestSharedPartNotACycle(t *testing.T) {
	// One part placed twice is a DAG, not a cycle.
	g := graph.New()
	box := makeBox("peg", 1, 1, 1)
	peg := makePart("peg", box.ID)
	left := makePlace("left", vec(-2, 0, 0), nil, peg.ID)
	right := makePlace("right", vec(2, 0, 0), nil, peg.ID)
	rack := makeGroup("rack", left.ID, right.ID)
	add(g, box, peg, left, right, rack)
	g.AddRoot(rack.ID)

	meshes, err := tessellate.Tessellate(context.Background(), g, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
}

func TestTessellateCancelled(t *testing.T) {
	g := graph.New()
	box := makeBox("b", 1, 1, 1)
	part := makePart("b", box.ID)
	add(g, box, part)
	g.AddRoot(part.ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tessellate.Tessellate(ctx, g, newKernel())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	tessellate.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer tessellate.SetLogger(nil)

	g := graph.New()
	box := makeBox("logged", 1, 1, 1)
	part := makePart("logged", box.ID)
	add(g, box, part)
	g.AddRoot(part.ID)

	if _, err := tessellate.Tessellate(context.Background(), g, newKernel()); err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"part meshed", "part=logged", "chunk meshed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	tessellate.SetLogger(nil)
	if tessellate.Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should discard records")
	}
}
