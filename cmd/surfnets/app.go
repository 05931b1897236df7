package main

import (
	"context"
	"log"

	"github.com/chazu/surfnets/pkg/engine"
	"github.com/chazu/surfnets/pkg/export"
	"github.com/chazu/surfnets/pkg/graph"
	"github.com/chazu/surfnets/pkg/kernel"
	"github.com/chazu/surfnets/pkg/kernel/sdfx"
	"github.com/chazu/surfnets/pkg/tessellate"
)

// App runs the script → graph → mesh pipeline.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []export.MeshData `json:"meshes"`
	Errors   []EvalErrorData   `json:"errors"`
	Warnings []EvalErrorData   `json:"warnings"`

	parts []*kernel.Mesh
}

// Parts returns the tessellated meshes, one per part.
func (r EvalResult) Parts() []*kernel.Mesh {
	return r.parts
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp(opts tessellate.Options) *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.New(sdfx.WithOptions(opts)),
	}
}

// Evaluate takes Lisp source and returns mesh data + errors.
func (a *App) Evaluate(source string) EvalResult {
	return a.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate with cancellation of the script run and the
// meshing step.
func (a *App) EvaluateContext(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Meshes:   []export.MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a scene graph.
	g, evalErrs, err := a.engine.EvaluateContext(ctx, source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 2: Structural checks before any geometry is built.
	findings := graph.Validate(g)
	for _, f := range findings {
		d := EvalErrorData{Message: f.Error()}
		if f.Severity == graph.SeverityError {
			result.Errors = append(result.Errors, d)
		} else {
			result.Warnings = append(result.Warnings, d)
		}
	}
	if graph.HasErrors(findings) {
		return result
	}

	// Step 3: Tessellate the scene graph into triangle meshes.
	meshes, err := tessellate.Tessellate(ctx, g, a.kernel)
	if err != nil {
		log.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}

	result.parts = meshes
	result.Meshes = export.NewDocument(meshes).Meshes
	return result
}
