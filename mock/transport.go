// Package mock provides test doubles for scribe interfaces using function fields.
package mock

import (
	"context"

	"github.com/scribehq/scribe"
)

// Interface compliance check.
var _ scribe.Transport = (*Transport)(nil)

// Transport is a test double for scribe.Transport.
// Set OpenFn before calling Open.
type Transport struct {
	OpenFn func(ctx context.Context, req scribe.Request) (scribe.Stream, error)
}

// Open delegates to OpenFn.
func (t *Transport) Open(ctx context.Context, req scribe.Request) (scribe.Stream, error) {
	return t.OpenFn(ctx, req)
}
