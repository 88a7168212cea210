// Package scan walks every stored object of a kind and hands each one to a
// processor. It backs operational jobs such as the thumbnail backfill.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-files/pkg/simplefiles"
)

// Scanner queries objects page by page and processes them with the provided processor.
type Scanner struct {
	repository simplefiles.Repository
	logger     *slog.Logger
}

// New creates a new Scanner instance.
func New(repository simplefiles.Repository, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{repository: repository, logger: logger}
}

// Options configures the scan operation.
type Options struct {
	// Kind selects which objects to visit
	Kind simplefiles.Kind

	// Processor defines the processing logic (required unless DryRun is true)
	Processor ObjectProcessor

	// BatchSize controls how many objects to query at once (default: 100)
	BatchSize int

	// DryRun if true, doesn't process objects, just reports what would be processed
	DryRun bool

	// OnProgress is called after each batch is processed (optional)
	OnProgress func(processed, total int64)
}

// Result contains statistics about the scan operation.
type Result struct {
	TotalFound     int64
	TotalProcessed int64
	TotalFailed    int64
	TotalSkipped   int64

	// FailedIDs contains the IDs of objects that failed processing
	FailedIDs []string
}

// Scan visits every object of opts.Kind in insertion order. A failing object
// is recorded and the scan continues with the next one.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}
	if !opts.Kind.IsValid() {
		return result, fmt.Errorf("unknown object kind: %q", opts.Kind)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := s.repository.ScanObjects(ctx, opts.Kind, offset, opts.BatchSize)
		if err != nil {
			return result, fmt.Errorf("failed to list objects: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		result.TotalFound += int64(len(batch))

		for _, object := range batch {
			if opts.DryRun {
				s.logger.InfoContext(ctx, "dry run: would process", "object_id", object.ID, "owner_id", object.OwnerID, "type", object.Kind)
				result.TotalProcessed++
				continue
			}

			err := opts.Processor.Process(ctx, object)
			switch {
			case errors.Is(err, ErrSkip):
				result.TotalSkipped++
			case err != nil:
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, object.ID.String())
				s.logger.WarnContext(ctx, "Failed to process object", "object_id", object.ID, "error", err)
			default:
				result.TotalProcessed++
			}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed+result.TotalSkipped, result.TotalFound)
		}

		if len(batch) < opts.BatchSize {
			break
		}
		offset += opts.BatchSize
	}

	return result, nil
}

// ForEach processes each object of kind with fn.
func (s *Scanner) ForEach(ctx context.Context, kind simplefiles.Kind, fn func(context.Context, *simplefiles.Object) error) (*Result, error) {
	return s.Scan(ctx, Options{Kind: kind, Processor: ProcessorFunc(fn)})
}
