package surfacenets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/surfnets/pkg/volume"
)

// ErrChunkSize is returned when a chunk is not volume.Size on every side.
// The row scanner is hard-wired to that size, so the pass is not attempted.
var ErrChunkSize = errors.New("surfacenets: chunk size mismatch")

// Vertex is a mesh vertex in chunk-local grid coordinates. Normals are not
// normalised.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
}

// NormalMode selects how vertex normals are produced.
type NormalMode int

const (
	// NormalsFromSDF estimates normals from the density gradient of each cell.
	NormalsFromSDF NormalMode = iota
	// NormalsRecalculate accumulates face normals of the emitted triangles.
	NormalsRecalculate
)

func (m NormalMode) String() string {
	switch m {
	case NormalsFromSDF:
		return "sdf"
	case NormalsRecalculate:
		return "recalculate"
	default:
		return fmt.Sprintf("NormalMode(%d)", int(m))
	}
}

// ParseNormalMode accepts "sdf" or "recalculate" (case-insensitive).
func ParseNormalMode(s string) (NormalMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sdf":
		return NormalsFromSDF, nil
	case "recalculate", "recalc", "faces":
		return NormalsRecalculate, nil
	}
	return NormalsFromSDF, fmt.Errorf("surfacenets: unknown normal mode %q", s)
}

// Mesher turns density chunks into triangle meshes. A Mesher is not safe for
// concurrent use; run one Mesher per goroutine.
type Mesher struct {
	table  *EdgeTable
	buffer []uint32
	rows   [2]rowBuffer

	vertices    []Vertex
	cells       []uint16
	indices     []uint32
	bounds      Bounds
	recalculate bool
	shared      [3]bool

	done chan struct{}
	err  error
}

// Option configures a Mesher.
type Option func(*Mesher)

// WithEdgeTable makes the Mesher use t instead of DefaultEdgeTable.
func WithEdgeTable(t *EdgeTable) Option {
	return func(m *Mesher) {
		if t != nil {
			m.table = t
		}
	}
}

// WithCapacity preallocates the vertex and index lists. Negative counts are
// treated as zero.
func WithCapacity(vertices, indices int) Option {
	return func(m *Mesher) {
		vertices = max(vertices, 0)
		indices = max(indices, 0)
		m.vertices = make([]Vertex, 0, vertices)
		m.cells = make([]uint16, 0, vertices)
		m.indices = make([]uint32, 0, indices)
	}
}

// New returns a Mesher with its scratch grid allocated.
func New(opts ...Option) *Mesher {
	m := &Mesher{
		table:  DefaultEdgeTable(),
		buffer: make([]uint32, scratchLen),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.vertices == nil {
		m.vertices = make([]Vertex, 0, 100)
		m.cells = make([]uint16, 0, 100)
		m.indices = make([]uint32, 0, 100)
	}
	return m
}

// SetSharedFaces marks the +x, +y and +z faces of the chunk as shared with
// the next chunk of a tiling that overlaps by one cell layer. Quads whose
// edge lies on a shared layer are left to the neighbour, which meshes them
// as interior edges. The setting holds until it is changed.
func (m *Mesher) SetSharedFaces(x, y, z bool) {
	m.shared = [3]bool{x, y, z}
}

// Mesh runs a full pass over c. Outputs of the previous pass are discarded
// (their storage is reused). c must not be written until Mesh returns.
func (m *Mesher) Mesh(c *volume.Chunk, mode NormalMode) error {
	m.vertices = m.vertices[:0]
	m.cells = m.cells[:0]
	m.indices = m.indices[:0]
	m.bounds.Reset()

	if c == nil {
		return fmt.Errorf("%w: nil chunk", ErrChunkSize)
	}
	if c.Size != volume.Size || len(c.Data) != volume.Len {
		return fmt.Errorf("%w: got size %d with %d samples, want %d", ErrChunkSize, c.Size, len(c.Data), volume.Len)
	}

	m.recalculate = mode == NormalsRecalculate
	m.scan(c.Data)
	if m.recalculate {
		m.recalculateNormals()
	}
	return nil
}

// Start runs Mesh on a new goroutine and returns immediately. A pass that is
// still running is waited for first. Outputs must not be read until Wait
// returns or IsFinished reports true.
func (m *Mesher) Start(c *volume.Chunk, mode NormalMode) {
	m.Wait()

	done := make(chan struct{})
	m.done = done
	m.err = nil
	go func() {
		defer close(done)
		m.err = m.Mesh(c, mode)
	}()
}

// Wait blocks until the pass started by Start completes and returns its
// error. It returns nil if no pass was started.
func (m *Mesher) Wait() error {
	if m.done == nil {
		return nil
	}
	<-m.done
	return m.err
}

// IsFinished reports whether no background pass is running.
func (m *Mesher) IsFinished() bool {
	if m.done == nil {
		return true
	}
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Vertices returns the vertices of the last pass. The slice is reused by the
// next pass.
func (m *Mesher) Vertices() []Vertex {
	return m.vertices
}

// Cell returns the grid position of the cell that emitted vertex i in the
// last pass.
func (m *Mesher) Cell(i int) [3]int {
	c := int(m.cells[i])
	return [3]int{
		c >> volume.XShift & volume.SizeMinusOne,
		c >> volume.YShift & volume.SizeMinusOne,
		c >> volume.ZShift & volume.SizeMinusOne,
	}
}

// Indices returns the triangle indices of the last pass, six per quad.
func (m *Mesher) Indices() []uint32 {
	return m.indices
}

// Bounds returns the box around the vertices of the last pass. It is empty
// when the pass produced no vertices.
func (m *Mesher) Bounds() Bounds {
	return m.bounds
}
