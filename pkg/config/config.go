// Package config loads mesher settings from a JSON file and CLI flags.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"

	"github.com/chazu/surfnets/pkg/export"
	"github.com/chazu/surfnets/pkg/surfacenets"
	"github.com/chazu/surfnets/pkg/tessellate"
)

// Config holds meshing and output settings.
type Config struct {
	// Meshing
	CellSize  float64 `json:"cell_size"`
	Workers   int     `json:"workers"`
	Normals   string  `json:"normals"` // "sdf" or "recalculate"
	MaxChunks int     `json:"max_chunks"`

	// Output
	Output string `json:"output"`
	Format string `json:"format"` // "stl" or "json"
}

// Defaults returns the settings used when neither file nor flags set a value.
func Defaults() Config {
	return Config{
		CellSize:  tessellate.DefaultCellSize,
		Workers:   runtime.NumCPU(),
		Normals:   surfacenets.NormalsFromSDF.String(),
		MaxChunks: tessellate.DefaultMaxChunks,
		Format:    string(export.FormatSTL),
	}
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	CellSize float64
	Workers  int
	Normals  string
	Output   string
	Format   string
}

// Resolve applies flags over the file settings and fills any field still
// unset from Defaults. CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.CellSize > 0 {
		c.CellSize = flags.CellSize
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Normals != "" {
		c.Normals = flags.Normals
	}
	if flags.Output != "" {
		c.Output = flags.Output
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}

	d := Defaults()
	if c.CellSize == 0 {
		c.CellSize = d.CellSize
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.Normals == "" {
		c.Normals = d.Normals
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = d.MaxChunks
	}
	if c.Format == "" {
		c.Format = formatFromOutput(c.Output, d.Format)
	}
}

// formatFromOutput guesses the format from the output file extension.
func formatFromOutput(out, fallback string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(out), ".json"):
		return string(export.FormatJSON)
	case strings.HasSuffix(strings.ToLower(out), ".stl"):
		return string(export.FormatSTL)
	default:
		return fallback
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !(c.CellSize > 0) || math.IsInf(c.CellSize, 0) {
		return fmt.Errorf("config: cell_size must be a positive number, got %v", c.CellSize)
	}
	if _, err := surfacenets.ParseNormalMode(c.Normals); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := export.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Options converts the meshing settings for the tessellator.
func (c Config) Options() (tessellate.Options, error) {
	mode, err := surfacenets.ParseNormalMode(c.Normals)
	if err != nil {
		return tessellate.Options{}, fmt.Errorf("config: %w", err)
	}
	return tessellate.Options{
		CellSize:  c.CellSize,
		Workers:   c.Workers,
		Normals:   mode,
		MaxChunks: c.MaxChunks,
	}, nil
}

// OutputFormat returns the parsed output format.
func (c Config) OutputFormat() (export.Format, error) {
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return f, nil
}
