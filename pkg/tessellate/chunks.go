package tessellate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/chazu/surfnets/pkg/kernel"
	"github.com/chazu/surfnets/pkg/surfacenets"
	"github.com/chazu/surfnets/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// DefaultCellSize is the lattice spacing in world units.
	DefaultCellSize = 0.5
	// DefaultMaxChunks bounds the number of chunks one solid may need.
	DefaultMaxChunks = 4096

	// Neighbouring chunks share their last and first cell layer, so a chunk
	// advances Size-2 cells along each axis.
	chunkStep = volume.Size - 2
	// Empty cells added around the bounding box so the surface never
	// touches the lattice boundary.
	padCells = 2
)

var (
	// ErrTooManyChunks is returned when a solid needs more chunks than
	// Options.MaxChunks at the requested cell size.
	ErrTooManyChunks = errors.New("tessellate: too many chunks")
	// ErrEmptySolid is returned for a solid with an empty or invalid
	// bounding box.
	ErrEmptySolid = errors.New("tessellate: empty bounding box")
)

// Options controls sampling and meshing of solids.
type Options struct {
	CellSize  float64                // world units per cell
	Workers   int                    // chunk meshers run in parallel; <1 uses runtime.NumCPU()
	Normals   surfacenets.NormalMode // vertex normal source
	MaxChunks int                    // <1 uses DefaultMaxChunks
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		CellSize:  DefaultCellSize,
		Workers:   runtime.NumCPU(),
		Normals:   surfacenets.NormalsFromSDF,
		MaxChunks: DefaultMaxChunks,
	}
}

func (o Options) withDefaults() Options {
	if o.CellSize == 0 {
		o.CellSize = DefaultCellSize
	}
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	if o.MaxChunks < 1 {
		o.MaxChunks = DefaultMaxChunks
	}
	return o
}

// solidField lets volume sample a kernel solid.
type solidField struct {
	s kernel.Solid
}

func (f solidField) Evaluate(p v3.Vec) float64 {
	return f.s.Evaluate([3]float64{p.X, p.Y, p.Z})
}

// tile is one chunk of the lattice laid over a solid.
type tile struct {
	offset [3]int  // first sample, in lattice cells
	shared [3]bool // +x, +y, +z face shared with a following tile
}

// lattice covers a solid's padded bounding box with overlapping tiles.
type lattice struct {
	origin   v3.Vec
	cellSize float64
	counts   [3]int
}

func newLattice(s kernel.Solid, cellSize float64) (lattice, error) {
	lo, hi := s.BoundingBox()
	l := lattice{cellSize: cellSize}
	org := [3]float64{}
	for i := 0; i < 3; i++ {
		span := hi[i] - lo[i]
		if !(span >= 0) || math.IsInf(span, 0) {
			return l, fmt.Errorf("%w: axis %d spans %v..%v", ErrEmptySolid, i, lo[i], hi[i])
		}
		org[i] = lo[i] - padCells*cellSize
		cells := int(math.Ceil(span/cellSize)) + 2*padCells
		l.counts[i] = (cells + chunkStep - 1) / chunkStep
	}
	l.origin = v3.Vec{X: org[0], Y: org[1], Z: org[2]}
	return l, nil
}

func (l lattice) len() int {
	return l.counts[0] * l.counts[1] * l.counts[2]
}

// tiles lists the tiles in x, y, z raster order.
func (l lattice) tiles() []tile {
	ts := make([]tile, 0, l.len())
	for x := 0; x < l.counts[0]; x++ {
		for y := 0; y < l.counts[1]; y++ {
			for z := 0; z < l.counts[2]; z++ {
				ts = append(ts, tile{
					offset: [3]int{x * chunkStep, y * chunkStep, z * chunkStep},
					shared: [3]bool{x < l.counts[0]-1, y < l.counts[1]-1, z < l.counts[2]-1},
				})
			}
		}
	}
	return ts
}

// seamVertex is a vertex emitted on a cell layer that two tiles share. The
// neighbouring tile emits a copy of it for the same lattice cell.
type seamVertex struct {
	cell  [3]int // lattice cell
	index uint32 // vertex index within the tile mesh
}

// tileMesh is one tile's output in world space.
type tileMesh struct {
	mesh *kernel.Mesh
	seam []seamVertex
}

func (t tile) onSeam(cell [3]int) bool {
	for i := 0; i < 3; i++ {
		if cell[i] == chunkStep && t.shared[i] {
			return true
		}
		if cell[i] == 0 && t.offset[i] > 0 {
			return true
		}
	}
	return false
}

// toWorld copies the mesher's output into a fresh mesh in world space.
func (l lattice) toWorld(t tile, m *surfacenets.Mesher) tileMesh {
	verts := m.Vertices()
	out := &kernel.Mesh{
		Vertices: make([]float32, 0, 3*len(verts)),
		Normals:  make([]float32, 0, 3*len(verts)),
		Indices:  append([]uint32(nil), m.Indices()...),
	}
	var seam []seamVertex
	org := [3]float64{l.origin.X, l.origin.Y, l.origin.Z}
	for i, v := range verts {
		var p [3]float32
		for a := 0; a < 3; a++ {
			p[a] = float32(org[a] + (float64(t.offset[a])+float64(v.Position[a]))*l.cellSize)
		}
		out.Vertices = append(out.Vertices, p[0], p[1], p[2])
		out.Normals = append(out.Normals, v.Normal[0], v.Normal[1], v.Normal[2])

		if c := m.Cell(i); t.onSeam(c) {
			seam = append(seam, seamVertex{
				cell:  [3]int{t.offset[0] + c[0], t.offset[1] + c[1], t.offset[2] + c[2]},
				index: uint32(i),
			})
		}
	}
	if b := m.Bounds(); !b.Empty() {
		for i := 0; i < 3; i++ {
			out.Min[i] = float32(org[i] + (float64(t.offset[i])+float64(b.Min[i]))*l.cellSize)
			out.Max[i] = float32(org[i] + (float64(t.offset[i])+float64(b.Max[i]))*l.cellSize)
		}
	}
	return tileMesh{mesh: out, seam: seam}
}

// joinSeams gives every copy of a seam vertex the sum of the copies'
// normals. Each copy only saw the faces of its own tile.
func joinSeams(m *kernel.Mesh, copies map[[3]int][]uint32) int {
	joined := 0
	for _, idx := range copies {
		if len(idx) < 2 {
			continue
		}
		var sum [3]float32
		for _, i := range idx {
			for a := 0; a < 3; a++ {
				sum[a] += m.Normals[3*i+uint32(a)]
			}
		}
		for _, i := range idx {
			copy(m.Normals[3*i:3*i+3], sum[:])
		}
		joined += len(idx)
	}
	return joined
}

// fillZeroNormals replaces zero normals, left by vertices whose faces all
// degenerated, with the central difference gradient of s.
func fillZeroNormals(m *kernel.Mesh, s kernel.Solid, h float64) int {
	filled := 0
	n := m.Normals
	for i := 0; i+2 < len(n); i += 3 {
		if n[i] != 0 || n[i+1] != 0 || n[i+2] != 0 {
			continue
		}
		p := [3]float64{float64(m.Vertices[i]), float64(m.Vertices[i+1]), float64(m.Vertices[i+2])}
		for a := 0; a < 3; a++ {
			hi, lo := p, p
			hi[a] += h
			lo[a] -= h
			n[i+a] = float32(s.Evaluate(hi) - s.Evaluate(lo))
		}
		filled++
	}
	return filled
}

// MeshSolid samples s on a lattice of opts.CellSize and meshes it with
// surface nets, one 32³ chunk at a time on opts.Workers goroutines. Chunks
// are merged in a fixed order, so the result does not depend on the worker
// count. Normals are unit length.
func MeshSolid(ctx context.Context, s kernel.Solid, opts Options) (*kernel.Mesh, error) {
	opts = opts.withDefaults()
	if !(opts.CellSize > 0) || math.IsInf(opts.CellSize, 0) {
		return nil, fmt.Errorf("tessellate: invalid cell size %v", opts.CellSize)
	}

	l, err := newLattice(s, opts.CellSize)
	if err != nil {
		return nil, err
	}
	if n := l.len(); n > opts.MaxChunks {
		return nil, fmt.Errorf("%w: %d needed at cell size %v, limit %d", ErrTooManyChunks, n, opts.CellSize, opts.MaxChunks)
	}

	tiles := l.tiles()
	results := make([]tileMesh, len(tiles))
	field := solidField{s: s}
	table := surfacenets.DefaultEdgeTable()
	start := time.Now()

	workers := opts.Workers
	if workers > len(tiles) {
		workers = len(tiles)
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	tileChan := make(chan int, workers*2)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := surfacenets.New(surfacenets.WithEdgeTable(table))
			c := volume.New()
			for idx := range tileChan {
				if ctx.Err() != nil {
					continue
				}
				t := tiles[idx]
				c.SampleGrid(field, l.origin, t.offset, l.cellSize)
				if c.Uniform() {
					continue
				}
				m.SetSharedFaces(t.shared[0], t.shared[1], t.shared[2])
				if err := m.Mesh(c, opts.Normals); err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}
				results[idx] = l.toWorld(t, m)
				Logger().Debug("tessellate: chunk meshed",
					"offset", t.offset,
					"vertices", len(m.Vertices()),
					"indices", len(m.Indices()))
			}
		}()
	}

	for i := range tiles {
		if ctx.Err() != nil {
			break
		}
		tileChan <- i
	}
	close(tileChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	if firstErr != nil {
		return nil, fmt.Errorf("tessellate: meshing chunk: %w", firstErr)
	}

	out := &kernel.Mesh{}
	copies := make(map[[3]int][]uint32)
	for _, r := range results {
		if r.mesh == nil || r.mesh.IsEmpty() {
			continue
		}
		base := uint32(out.VertexCount())
		out.Append(r.mesh)
		for _, sv := range r.seam {
			copies[sv.cell] = append(copies[sv.cell], base+sv.index)
		}
	}
	joined := joinSeams(out, copies)
	filled := fillZeroNormals(out, s, opts.CellSize/2)
	out.NormalizeNormals()

	Logger().Debug("tessellate: solid meshed",
		"chunks", len(tiles),
		"seam_vertices", joined,
		"gradient_normals", filled,
		"vertices", out.VertexCount(),
		"triangles", out.TriangleCount(),
		"elapsed", time.Since(start))
	return out, nil
}
