package resolve

import (
	"context"
	"fmt"

	"cookbook/internal/catalog"
	"cookbook/internal/dataset"
)

// Subset applies the count policy to time-ordered records: nil keeps all,
// n > 0 keeps the first n, n < 0 the last -n, and 0 keeps none.
func Subset(recs []catalog.FileRecord, n *int) []catalog.FileRecord {
	switch {
	case n == nil:
		return recs
	case *n >= 0:
		return recs[:min(*n, len(recs))]
	default:
		return recs[len(recs)-min(-*n, len(recs)):]
	}
}

// PlanChunks pairs the first record's dimensions with its chunk sizes and
// applies overrides, which replace or add entries. Later records are not
// consulted.
func PlanChunks(recs []catalog.FileRecord, overrides map[string]int) (dataset.ChunkPlan, error) {
	if len(recs) == 0 {
		return nil, ErrEmptyResult
	}
	first := recs[0]
	if len(first.Dimensions) != len(first.ChunkSizes) {
		return nil, fmt.Errorf("%s: %w: %d dimensions but %d chunk sizes", first.Path, catalog.ErrLayout, len(first.Dimensions), len(first.ChunkSizes))
	}
	plan := make(dataset.ChunkPlan, len(first.Dimensions)+len(overrides))
	for i, dim := range first.Dimensions {
		plan[dim] = first.ChunkSizes[i]
	}
	for dim, size := range overrides {
		plan[dim] = size
	}
	return plan, nil
}

// Assemble opens the records' files as one dataset restricted to variable
// and its coordinates, chunked by plan. Time values stay raw.
func Assemble(ctx context.Context, opener dataset.Opener, recs []catalog.FileRecord, plan dataset.ChunkPlan, variable string) (*dataset.Dataset, error) {
	paths := make([]string, len(recs))
	for i, rec := range recs {
		paths[i] = rec.Path
	}
	return opener.OpenCombined(ctx, paths, plan, dataset.SelectVariable(variable))
}
