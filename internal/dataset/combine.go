package dataset

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SelectVariable returns a Preprocessor that keeps only the named variable
// and the coordinate variables of its dimensions. Other variables in a file
// may have unrelated shapes and must not take part in the combine.
func SelectVariable(name string) Preprocessor {
	return func(d *Dataset) (*Dataset, error) {
		v, ok := d.vars[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrVariableNotFound, name)
		}
		out := New(v)
		out.Attrs = d.Attrs
		for _, dim := range v.Dims {
			if c, ok := d.vars[dim]; ok && isCoord(c) {
				out.Add(c)
			}
		}
		out.adopt(d)
		return out, nil
	}
}

// RecordDim returns the dimension files are concatenated along: the one
// named "time" ignoring case, else the leading dimension of the first
// non-coordinate variable. It returns "" when d has no dimensions.
func RecordDim(d *Dataset) string {
	names := d.Names()
	for _, n := range names {
		for _, dim := range d.vars[n].Dims {
			if strings.EqualFold(dim, "time") {
				return dim
			}
		}
	}
	for _, n := range names {
		if v := d.vars[n]; !isCoord(v) && len(v.Dims) > 0 {
			return v.Dims[0]
		}
	}
	for _, n := range names {
		if v := d.vars[n]; len(v.Dims) > 0 {
			return v.Dims[0]
		}
	}
	return ""
}

// Combine concatenates parts along their record dimension. Variables that
// do not use the record dimension are taken from the first part. Every
// part must hold the same variables with the same dimensions, and agree in
// length on all but the record dimension. The result takes over the
// resources of every part.
func Combine(parts ...*Dataset) (*Dataset, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("combine: no datasets")
	}
	first := parts[0]
	if len(parts) == 1 {
		return first, nil
	}

	rec := RecordDim(first)
	out := New()
	out.Attrs = first.Attrs
	for _, name := range first.Names() {
		v := first.vars[name]
		pos := slices.Index(v.Dims, rec)
		if pos < 0 {
			out.Add(v)
			continue
		}
		if pos != 0 {
			return nil, fmt.Errorf("variable %s: %w: record dimension %s is not leading in %v", name, ErrShapeMismatch, rec, v.Dims)
		}

		arrays := make([]Array, len(parts))
		for i, p := range parts {
			pv, ok := p.vars[name]
			if !ok {
				return nil, fmt.Errorf("part %d: %w: %s", i, ErrVariableNotFound, name)
			}
			if err := sameLayout(v, pv); err != nil {
				return nil, fmt.Errorf("part %d: %w", i, err)
			}
			arrays[i] = pv.data
		}
		cv := v.clone()
		cv.data = newConcat(arrays)
		out.Add(cv)
	}
	for _, p := range parts {
		out.adopt(p)
	}
	return out, nil
}

func sameLayout(want, got *Variable) error {
	if !slices.Equal(want.Dims, got.Dims) {
		return fmt.Errorf("variable %s: %w: dimensions %v, want %v", want.Name, ErrShapeMismatch, got.Dims, want.Dims)
	}
	if ws, gs := want.Shape(), got.Shape(); !slices.Equal(ws[1:], gs[1:]) {
		return fmt.Errorf("variable %s: %w: shape %v, want %v", want.Name, ErrShapeMismatch, gs, ws)
	}
	return nil
}

// concat is the leading-dimension concatenation of arrays that agree on
// every other dimension.
type concat struct {
	parts  []Array
	starts []int // starts[i] is the first row of parts[i]; starts[len] is the total
	shape  []int
}

func newConcat(parts []Array) *concat {
	c := &concat{parts: parts, starts: make([]int, len(parts)+1)}
	for i, p := range parts {
		c.starts[i+1] = c.starts[i] + p.Shape()[0]
	}
	c.shape = slices.Clone(parts[0].Shape())
	c.shape[0] = c.starts[len(parts)]
	return c
}

func (c *concat) Shape() []int { return c.shape }

func (c *concat) Read(ctx context.Context, begin, end int) ([]float64, error) {
	if begin < 0 || end > c.shape[0] || begin > end {
		return nil, fmt.Errorf("read rows [%d, %d) of %d", begin, end, c.shape[0])
	}
	out := make([]float64, 0, (end-begin)*rowSize(c.shape))
	for i, p := range c.parts {
		lo, hi := max(begin, c.starts[i]), min(end, c.starts[i+1])
		if lo >= hi {
			continue
		}
		vals, err := p.Read(ctx, lo-c.starts[i], hi-c.starts[i])
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

// OpenFunc opens one file as a dataset.
type OpenFunc func(ctx context.Context, path string) (*Dataset, error)

// OpenCombined opens paths with at most parallel concurrent opens (no
// limit when parallel <= 0), runs preprocess on each, combines the results
// in path order and applies plan. On error every opened file is closed.
func OpenCombined(ctx context.Context, paths []string, plan ChunkPlan, preprocess Preprocessor, open OpenFunc, parallel int) (*Dataset, error) {
	parts := make([]*Dataset, len(paths))
	closeAll := func() {
		for _, p := range parts {
			if p != nil {
				p.Close()
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := open(gctx, path)
			if err != nil {
				return err
			}
			if preprocess != nil {
				pd, err := preprocess(d)
				if err != nil {
					d.Close()
					return fmt.Errorf("%s: %w", path, err)
				}
				d = pd
			}
			parts[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		closeAll()
		return nil, err
	}

	combined, err := Combine(parts...)
	if err != nil {
		closeAll()
		return nil, err
	}
	combined.ApplyChunks(plan)
	return combined, nil
}
