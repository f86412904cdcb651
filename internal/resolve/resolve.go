// Package resolve turns an (experiment, variable) request into a single
// lazily loaded array drawn from many catalogued files.
//
// Resolution runs five stages in order:
//
//  1. query the catalog for candidate files, ordered by start time
//  2. keep the first or last n of them (Subset)
//  3. derive a chunk plan from the first file's layout (PlanChunks)
//  4. open the files as one dataset projected onto the variable (Assemble)
//  5. rebase, offset and decode the time coordinate (NormalizeTime)
//
// Every stage but the final time decode fails the request. A time axis that
// cannot be decoded is left numeric and reported in Result.TimeDecodeErr.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cookbook/internal/catalog"
	"cookbook/internal/cftime"
	"cookbook/internal/dataset"
	"cookbook/internal/logging"
)

// ErrEmptyResult is returned when no file is left to build the array from.
var ErrEmptyResult = errors.New("no files match the request")

// Request describes one resolution. Zero-valued optional fields impose no
// constraint.
type Request struct {
	Experiment string
	Variable   string

	// NCFile keeps files whose path ends with it.
	NCFile string
	// N keeps the first N files, or the last -N when negative.
	N *int
	// Start and End bound the files by coverage overlap.
	Start cftime.DateTime
	End   cftime.DateTime

	// Chunks overrides the chunk size of individual dimensions.
	Chunks map[string]int
	// TimeUnits rebases the time axis onto these units before decoding.
	TimeUnits string
	// Offset is added to the raw, possibly rebased, time values.
	Offset *int
}

// Result is a resolved array and how it was built. The caller owns the
// array and must Close the result.
type Result struct {
	Array *dataset.DataArray
	Files []catalog.FileRecord
	Plan  dataset.ChunkPlan

	// TimeDecodeErr is a *cftime.DecodeError when the time axis was left
	// undecoded.
	TimeDecodeErr error
}

// Close releases the files backing the array.
func (r *Result) Close() error {
	if r.Array == nil {
		return nil
	}
	return r.Array.Close()
}

// Resolver resolves requests against a catalog and a dataset engine. It
// holds no per-request state and is safe for concurrent use.
type Resolver struct {
	catalog catalog.Reader
	opener  dataset.Opener
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Time decode failures are logged at WARN and
// stage boundaries at DEBUG.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// New returns a resolver reading cat and opening files with opener.
func New(cat catalog.Reader, opener dataset.Opener, opts ...Option) *Resolver {
	r := &Resolver{catalog: cat, opener: opener}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.Default(r.logger).With("component", "resolve")
	return r
}

// Resolve runs the pipeline for req. Catalog and engine errors are
// returned as is.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	logger := r.logger.With("request", requestID(), "experiment", req.Experiment, "variable", req.Variable)

	recs, err := r.catalog.Query(ctx, catalog.Query{
		Experiment: req.Experiment,
		Variable:   req.Variable,
		NCFile:     req.NCFile,
		Start:      req.Start,
		End:        req.End,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("files matched", "count", len(recs))

	recs = Subset(recs, req.N)
	plan, err := PlanChunks(recs, req.Chunks)
	if err != nil {
		if errors.Is(err, ErrEmptyResult) {
			return nil, fmt.Errorf("%w: experiment %q variable %q", err, req.Experiment, req.Variable)
		}
		return nil, err
	}
	logger.Debug("files selected", "count", len(recs), "first", recs[0].Path, "plan", plan)

	ds, err := Assemble(ctx, r.opener, recs, plan, req.Variable)
	if err != nil {
		return nil, err
	}

	decodeErr, err := NormalizeTime(ctx, ds, TimeOptions{
		Units:       recs[0].TimeUnits,
		Calendar:    recs[0].Calendar,
		TargetUnits: req.TimeUnits,
		Offset:      req.Offset,
	})
	if err != nil {
		ds.Close()
		return nil, err
	}
	if decodeErr != nil {
		logger.Warn("unable to decode time", "error", decodeErr)
	}

	arr, err := ds.DataArray(req.Variable)
	if err != nil {
		ds.Close()
		return nil, err
	}
	logger.Debug("resolved", "dims", arr.Dims, "shape", arr.Shape())

	return &Result{Array: arr, Files: recs, Plan: plan, TimeDecodeErr: decodeErr}, nil
}

func requestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
