// Package catalog defines the read side of the file catalog: which netCDF
// files exist for an experiment, which variables each declares, and the
// storage layout and time axis metadata recorded for them at index time.
//
// The catalog is built elsewhere. This package only queries it. Two
// implementations exist: catalog/sqlite reads the cookbook database, and
// catalog/memory holds records in process.
package catalog

import (
	"context"
	"errors"
	"strings"

	"cookbook/internal/cftime"
)

// ErrLayout marks a record whose dimensions and chunk sizes cannot be
// paired, either because the stored text is malformed or because the two
// sequences differ in length.
var ErrLayout = errors.New("invalid variable layout")

// FileRecord is one (file, variable) pair returned by a query.
type FileRecord struct {
	Path       string
	Experiment string
	Run        int
	Variable   string

	// Dimensions and ChunkSizes are positionally paired. A chunk size of
	// zero means the variable is stored contiguously along that dimension.
	Dimensions []string
	ChunkSizes []int

	TimeUnits string
	Calendar  string
	TimeStart cftime.DateTime
	TimeEnd   cftime.DateTime
	Frequency string
}

// Query selects the files of one experiment that declare a variable.
// Zero-valued optional fields impose no constraint.
type Query struct {
	Experiment string
	Variable   string

	// NCFile keeps only files whose path ends with this string.
	NCFile string

	// Start keeps files whose coverage ends at or after Start.
	Start cftime.DateTime
	// End keeps files whose coverage starts at or before End.
	End cftime.DateTime
}

// Reader runs candidate queries. Results are ordered by ascending
// TimeStart, ties broken by path.
type Reader interface {
	Query(ctx context.Context, q Query) ([]FileRecord, error)
}

// Lister enumerates catalog contents.
type Lister interface {
	Experiments(ctx context.Context) ([]string, error)
	Variables(ctx context.Context, experiment string) ([]string, error)
	// Files lists file coverage for an experiment, optionally restricted to
	// one variable, ordered by variable then start time. Layout fields are
	// not populated.
	Files(ctx context.Context, experiment, variable string) ([]FileRecord, error)
}

// Match reports whether a file with the given path and coverage satisfies
// the optional constraints of q. Experiment and variable membership are
// checked by the caller.
func (q Query) Match(path string, start, end cftime.DateTime) bool {
	if q.NCFile != "" && !strings.HasSuffix(path, q.NCFile) {
		return false
	}
	if !q.Start.IsZero() && (end.IsZero() || end.Before(q.Start)) {
		return false
	}
	if !q.End.IsZero() && (start.IsZero() || start.After(q.End)) {
		return false
	}
	return true
}
