// Package export writes tessellated meshes to files.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/surfnets/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrNoTriangles is returned when there is nothing to write.
var ErrNoTriangles = errors.New("export: no triangles")

// Format is an output file format.
type Format string

const (
	FormatSTL  Format = "stl"
	FormatJSON Format = "json"
)

// ParseFormat parses "stl" or "json", ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSTL, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("export: unknown format %q", s)
	}
}

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// PartColor returns the palette color for the i-th part.
func PartColor(i int) string {
	return colorPalette[i%len(colorPalette)]
}

// MeshData is the JSON form of one part mesh.
type MeshData struct {
	Vertices []float32  `json:"vertices"`
	Normals  []float32  `json:"normals"`
	Indices  []uint32   `json:"indices"`
	Min      [3]float32 `json:"min"`
	Max      [3]float32 `json:"max"`
	PartName string     `json:"partName"`
	Color    string     `json:"color"`
}

// Document is the top-level JSON output.
type Document struct {
	Meshes []MeshData `json:"meshes"`
}

// NewDocument converts meshes to their JSON form, skipping nil meshes.
func NewDocument(meshes []*kernel.Mesh) Document {
	doc := Document{Meshes: []MeshData{}}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		doc.Meshes = append(doc.Meshes, MeshData{
			Vertices: nonNil(m.Vertices),
			Normals:  nonNil(m.Normals),
			Indices:  nonNilIndices(m.Indices),
			Min:      m.Min,
			Max:      m.Max,
			PartName: m.PartName,
			Color:    PartColor(len(doc.Meshes)),
		})
	}
	return doc
}

func nonNil(s []float32) []float32 {
	if s == nil {
		return []float32{}
	}
	return s
}

func nonNilIndices(s []uint32) []uint32 {
	if s == nil {
		return []uint32{}
	}
	return s
}

// WriteJSON encodes meshes as an indented Document.
func WriteJSON(w io.Writer, meshes []*kernel.Mesh) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(meshes)); err != nil {
		return fmt.Errorf("export: encoding json: %w", err)
	}
	return nil
}

// Triangles flattens the meshes into sdfx triangles.
func Triangles(meshes ...*kernel.Mesh) []*sdf.Triangle3 {
	n := 0
	for _, m := range meshes {
		if m != nil {
			n += m.TriangleCount()
		}
	}
	tris := make([]*sdf.Triangle3, 0, n)
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for i := 0; i+2 < len(m.Indices); i += 3 {
			tris = append(tris, &sdf.Triangle3{
				vertex(m, m.Indices[i]),
				vertex(m, m.Indices[i+1]),
				vertex(m, m.Indices[i+2]),
			})
		}
	}
	return tris
}

func vertex(m *kernel.Mesh, i uint32) v3.Vec {
	p := m.Position(i)
	return v3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

// WriteSTL writes all meshes into one binary STL file.
func WriteSTL(path string, meshes ...*kernel.Mesh) error {
	tris := Triangles(meshes...)
	if len(tris) == 0 {
		return ErrNoTriangles
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	return nil
}

// WriteFile writes meshes to path in format f.
func WriteFile(path string, f Format, meshes []*kernel.Mesh) error {
	switch f {
	case FormatSTL:
		return WriteSTL(path, meshes...)
	case FormatJSON:
		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := WriteJSON(out, meshes); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("export: closing %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("export: unknown format %q", f)
	}
}
