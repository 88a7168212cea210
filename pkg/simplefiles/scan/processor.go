package scan

import (
	"context"
	"errors"

	"github.com/tendant/simple-files/pkg/simplefiles"
)

// ErrSkip is returned by a Processor for objects that need no work. Skipped
// objects are counted separately from processed ones.
var ErrSkip = errors.New("skip")

// ObjectProcessor handles one object found by a scan.
//
// Example implementations:
//   - Thumbnail backfill (re-enqueues images missing derivatives)
//   - Integrity check (verifies every object still has its content)
type ObjectProcessor interface {
	// Process is called for each object found during scan.
	// Return error to mark this object as failed (scan continues with next object).
	Process(ctx context.Context, object *simplefiles.Object) error
}

// ProcessorFunc adapts a function to the ObjectProcessor interface.
type ProcessorFunc func(context.Context, *simplefiles.Object) error

func (f ProcessorFunc) Process(ctx context.Context, object *simplefiles.Object) error {
	return f(ctx, object)
}
