package mock

import (
	"context"

	"github.com/scribehq/scribe"
)

// Interface compliance check.
var _ scribe.Generator = (*Generator)(nil)

// Generator is a test double for scribe.Generator.
// Set GenerateFn before calling Generate.
type Generator struct {
	GenerateFn func(ctx context.Context, req scribe.Request, report func(scribe.Progress)) (string, error)
}

// Generate delegates to GenerateFn.
func (g *Generator) Generate(ctx context.Context, req scribe.Request, report func(scribe.Progress)) (string, error) {
	return g.GenerateFn(ctx, req, report)
}
