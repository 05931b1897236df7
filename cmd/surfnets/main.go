// Command surfnets evaluates a solid-modelling script and writes the
// surface nets mesh of every part as STL or JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/chazu/surfnets/pkg/config"
	"github.com/chazu/surfnets/pkg/export"
	"github.com/chazu/surfnets/pkg/tessellate"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	script := flag.String("script", "", "Script to evaluate (default: stdin)")
	out := flag.String("out", "", "Output file (default: stdout for json)")
	format := flag.String("format", "", "Output format: stl or json (default: from -out, else stl)")
	cell := flag.Float64("cell", 0, "Cell size in world units (default: 0.5)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	normals := flag.String("normals", "", "Normal source: sdf or recalculate (default: sdf)")
	verbose := flag.Bool("v", false, "Log every meshed chunk")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	tessellate.SetLogger(logger)

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		CellSize: *cell,
		Workers:  *workers,
		Normals:  *normals,
		Output:   *out,
		Format:   *format,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts, err := cfg.Options()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	outFormat, err := cfg.OutputFormat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if outFormat == export.FormatSTL && cfg.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: STL output needs a file. Use -out or config.json.")
		os.Exit(1)
	}

	source, err := readScript(*script)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading script: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result := NewApp(opts).EvaluateContext(ctx, source)
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", formatEvalError(w))
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "Error: %s\n", formatEvalError(e))
		}
		os.Exit(1)
	}

	if err := writeResult(cfg.Output, outFormat, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}

	triangles := 0
	for _, m := range result.Parts() {
		triangles += m.TriangleCount()
	}
	slog.Info("surfnets: done",
		"parts", len(result.Parts()),
		"triangles", triangles,
		"cell", cfg.CellSize,
		"elapsed", time.Since(start).Round(time.Millisecond))
}

func readScript(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// writeResult writes the meshes to path, or JSON to stdout when path is empty.
func writeResult(path string, f export.Format, result EvalResult) error {
	if path == "" {
		return export.WriteJSON(os.Stdout, result.Parts())
	}
	return export.WriteFile(path, f, result.Parts())
}

func formatEvalError(e EvalErrorData) string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}
