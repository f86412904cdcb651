// Package memory provides an in-process catalog.
//
// It applies the same predicates and ordering as the SQLite catalog and is
// intended for tests and for embedding callers that already hold file
// metadata.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"cookbook/internal/catalog"
	"cookbook/internal/cftime"
)

// Layout is the stored dimensions and chunking text of one variable.
type Layout struct {
	Dimensions string
	Chunking   string
}

// File is one indexed file.
type File struct {
	Path       string
	Experiment string
	Run        int
	TimeUnits  string
	Calendar   string
	TimeStart  cftime.DateTime
	TimeEnd    cftime.DateTime
	Frequency  string
	// Missing files are kept in the catalog but never returned.
	Missing bool
	Vars    map[string]Layout
}

// Catalog is a mutex-guarded slice of files.
type Catalog struct {
	mu    sync.RWMutex
	files []File
}

var (
	_ catalog.Reader = (*Catalog)(nil)
	_ catalog.Lister = (*Catalog)(nil)
)

// New returns a catalog holding files.
func New(files ...File) *Catalog {
	return &Catalog{files: slices.Clone(files)}
}

// Add appends files.
func (c *Catalog) Add(files ...File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, files...)
}

// Query returns the records matching q in start time then path order.
func (c *Catalog) Query(ctx context.Context, q catalog.Query) ([]catalog.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []catalog.FileRecord
	for _, f := range c.files {
		if f.Missing || f.Experiment != q.Experiment {
			continue
		}
		layout, ok := f.Vars[q.Variable]
		if !ok || !q.Match(f.Path, f.TimeStart, f.TimeEnd) {
			continue
		}
		dims, sizes, err := catalog.DecodeLayout(layout.Dimensions, layout.Chunking)
		if err != nil {
			return nil, fmt.Errorf("file %s variable %s: %w", f.Path, q.Variable, err)
		}
		rec := record(f, q.Variable)
		rec.Dimensions, rec.ChunkSizes = dims, sizes
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

// Experiments lists the distinct experiment names, missing files included.
func (c *Catalog) Experiments(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, f := range c.files {
		if !seen[f.Experiment] {
			seen[f.Experiment] = true
			out = append(out, f.Experiment)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Variables lists the distinct variables of an experiment's present files.
func (c *Catalog) Variables(ctx context.Context, experiment string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, f := range c.files {
		if f.Experiment != experiment || f.Missing {
			continue
		}
		for name := range f.Vars {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

// Files lists the (file, variable) pairs of an experiment, optionally
// restricted to one variable. Layout fields are not populated.
func (c *Catalog) Files(ctx context.Context, experiment, variable string) ([]catalog.FileRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []catalog.FileRecord
	for _, f := range c.files {
		if f.Experiment != experiment || f.Missing {
			continue
		}
		for name := range f.Vars {
			if variable == "" || name == variable {
				out = append(out, record(f, name))
			}
		}
	}
	slices.SortStableFunc(out, func(a, b catalog.FileRecord) int {
		return cmp.Or(cmp.Compare(a.Variable, b.Variable), a.TimeStart.Compare(b.TimeStart), cmp.Compare(a.Path, b.Path))
	})
	return out, nil
}

func record(f File, variable string) catalog.FileRecord {
	return catalog.FileRecord{
		Path:       f.Path,
		Experiment: f.Experiment,
		Run:        f.Run,
		Variable:   variable,
		TimeUnits:  f.TimeUnits,
		Calendar:   f.Calendar,
		TimeStart:  f.TimeStart,
		TimeEnd:    f.TimeEnd,
		Frequency:  f.Frequency,
	}
}

func sortRecords(recs []catalog.FileRecord) {
	slices.SortStableFunc(recs, func(a, b catalog.FileRecord) int {
		return cmp.Or(a.TimeStart.Compare(b.TimeStart), cmp.Compare(a.Path, b.Path))
	})
}
