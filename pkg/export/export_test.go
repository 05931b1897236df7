package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/surfnets/pkg/kernel"
)

// quad is a unit square in the XY plane made of two triangles.
func quad(name string, z float32) *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []float32{0, 0, z, 1, 0, z, 1, 1, z, 0, 1, z},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2, 2, 3, 0},
		Min:      [3]float32{0, 0, z},
		Max:      [3]float32{1, 1, z},
		PartName: name,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"stl", FormatSTL, false},
		{"JSON", FormatJSON, false},
		{"obj", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTriangles(t *testing.T) {
	tris := Triangles(quad("a", 0), nil, quad("b", 2))
	if len(tris) != 4 {
		t.Fatalf("got %d triangles, want 4", len(tris))
	}
	last := tris[3]
	if last[0].Z != 2 || last[1].X != 0 || last[1].Y != 1 {
		t.Errorf("last triangle = %v", *last)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	meshes := []*kernel.Mesh{quad("top", 1), nil, {PartName: "empty"}}
	if err := WriteJSON(&buf, meshes); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(doc.Meshes) != 2 {
		t.Fatalf("got %d meshes, want 2", len(doc.Meshes))
	}
	top := doc.Meshes[0]
	if top.PartName != "top" || top.Color != PartColor(0) || len(top.Indices) != 6 {
		t.Errorf("first mesh = %+v", top)
	}
	if top.Max != [3]float32{1, 1, 1} {
		t.Errorf("Max = %v", top.Max)
	}
	if doc.Meshes[1].Color != PartColor(1) {
		t.Errorf("second mesh color = %q, want %q", doc.Meshes[1].Color, PartColor(1))
	}
	// Empty meshes encode arrays, not null.
	if !bytes.Contains(buf.Bytes(), []byte(`"vertices": []`)) {
		t.Errorf("empty mesh vertices not encoded as []:\n%s", buf.String())
	}
}

func TestPartColorWraps(t *testing.T) {
	if PartColor(len(colorPalette)) != PartColor(0) {
		t.Error("palette should wrap around")
	}
}

func TestWriteSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.stl")
	if err := WriteSTL(path, quad("a", 0), quad("b", 1)); err != nil {
		t.Fatalf("WriteSTL() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// Binary STL: 80 byte header, triangle count, then the triangles.
	if info.Size() <= 84 {
		t.Errorf("STL file is %d bytes, want more than the header", info.Size())
	}
}

func TestWriteSTLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.stl")
	if err := WriteSTL(path, &kernel.Mesh{}); !errors.Is(err, ErrNoTriangles) {
		t.Fatalf("WriteSTL() error = %v, want ErrNoTriangles", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be written for an empty mesh")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	meshes := []*kernel.Mesh{quad("a", 0)}

	jsonPath := filepath.Join(dir, "out.json")
	if err := WriteFile(jsonPath, FormatJSON, meshes); err != nil {
		t.Fatalf("WriteFile(json) error = %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Error("json output is not valid")
	}

	if err := WriteFile(filepath.Join(dir, "out.stl"), FormatSTL, meshes); err != nil {
		t.Fatalf("WriteFile(stl) error = %v", err)
	}
	if err := WriteFile(filepath.Join(dir, "out.obj"), Format("obj"), meshes); err == nil {
		t.Error("unknown format should fail")
	}
	if err := WriteFile(filepath.Join(dir, "missing", "out.json"), FormatJSON, meshes); err == nil {
		t.Error("missing directory should fail")
	}
}
