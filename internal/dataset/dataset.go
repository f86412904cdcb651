// Package dataset is the lazy array model the resolver assembles into.
//
// A Dataset is a set of named variables sharing dimensions. Variable data
// sits behind the Array interface and is only read when a caller asks for a
// chunk or loads the variable. Engines (dataset/netcdf, dataset/memory) turn
// files into Datasets. This package combines them along the record
// dimension and applies chunk plans.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"cookbook/internal/catalog"
	"cookbook/internal/cftime"
)

var (
	// ErrVariableNotFound is returned when a requested variable is absent
	// from an opened file.
	ErrVariableNotFound = errors.New("variable not found")

	// ErrShapeMismatch is returned when files cannot be concatenated
	// because their variables disagree in dimensions or lengths. It matches
	// catalog.ErrLayout.
	ErrShapeMismatch = fmt.Errorf("shape mismatch: %w", catalog.ErrLayout)
)

// ChunkPlan maps dimension names to chunk sizes. A size <= 0 means one
// chunk spanning the whole dimension.
type ChunkPlan map[string]int

// Clone returns a copy of p.
func (p ChunkPlan) Clone() ChunkPlan {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Preprocessor transforms each raw per-file dataset before combining.
type Preprocessor func(*Dataset) (*Dataset, error)

// Opener opens many files as one virtual dataset.
type Opener interface {
	OpenCombined(ctx context.Context, paths []string, plan ChunkPlan, preprocess Preprocessor) (*Dataset, error)
}

// Array is lazily readable n-dimensional data.
type Array interface {
	Shape() []int
	// Read returns rows [begin, end) of the leading dimension as a flat
	// row-major slice. A scalar array has one row.
	Read(ctx context.Context, begin, end int) ([]float64, error)
}

// NewArray returns an in-memory array. len(values) must equal the product
// of shape.
func NewArray(shape []int, values []float64) (Array, error) {
	if n := product(shape); n != len(values) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(values), shape)
	}
	return &memArray{shape: slices.Clone(shape), values: values}, nil
}

type memArray struct {
	shape  []int
	values []float64
}

func (a *memArray) Shape() []int { return a.shape }

func (a *memArray) Read(_ context.Context, begin, end int) ([]float64, error) {
	row := rowSize(a.shape)
	rows := leading(a.shape)
	if begin < 0 || end > rows || begin > end {
		return nil, fmt.Errorf("read rows [%d, %d) of %d", begin, end, rows)
	}
	return slices.Clone(a.values[begin*row : end*row]), nil
}

// Variable is a named array with dimensions and attributes.
type Variable struct {
	Name  string
	Dims  []string
	Attrs map[string]any

	// Dates holds the decoded form of a time coordinate. It is nil until
	// the values have been decoded successfully.
	Dates []cftime.DateTime

	data   Array
	chunks []int
}

// NewVariable returns a variable over data. len(dims) must match the rank
// of data.
func NewVariable(name string, dims []string, attrs map[string]any, data Array) (*Variable, error) {
	if len(dims) != len(data.Shape()) {
		return nil, fmt.Errorf("variable %s: %w: %d dimensions for rank %d", name, ErrShapeMismatch, len(dims), len(data.Shape()))
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &Variable{Name: name, Dims: dims, Attrs: attrs, data: data}, nil
}

// Shape returns the length of each dimension.
func (v *Variable) Shape() []int { return v.data.Shape() }

// Size returns the number of elements.
func (v *Variable) Size() int { return product(v.Shape()) }

// Len returns the length of dimension dim, or -1 if v does not use it.
func (v *Variable) Len(dim string) int {
	if i := slices.Index(v.Dims, dim); i >= 0 {
		return v.Shape()[i]
	}
	return -1
}

// Load reads every value.
func (v *Variable) Load(ctx context.Context) ([]float64, error) {
	vals, err := v.data.Read(ctx, 0, leading(v.Shape()))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", v.Name, err)
	}
	return vals, nil
}

// SetValues replaces the data of v with values of the same shape. Any
// decoded dates are dropped.
func (v *Variable) SetValues(values []float64) error {
	a, err := NewArray(v.Shape(), values)
	if err != nil {
		return fmt.Errorf("variable %s: %w", v.Name, err)
	}
	v.data = a
	v.Dates = nil
	return nil
}

// StringAttr returns attribute key as a string.
func (v *Variable) StringAttr(key string) string {
	s, _ := v.Attrs[key].(string)
	return s
}

func (v *Variable) clone() *Variable {
	c := *v
	c.Dims = slices.Clone(v.Dims)
	c.Attrs = maps.Clone(v.Attrs)
	c.chunks = slices.Clone(v.chunks)
	return &c
}

// Dataset is a collection of variables and the resources backing them.
type Dataset struct {
	Attrs map[string]any

	vars    map[string]*Variable
	closers []io.Closer
}

// New returns a dataset holding vars.
func New(vars ...*Variable) *Dataset {
	d := &Dataset{Attrs: map[string]any{}, vars: map[string]*Variable{}}
	for _, v := range vars {
		d.vars[v.Name] = v
	}
	return d
}

// Add adds or replaces a variable.
func (d *Dataset) Add(v *Variable) { d.vars[v.Name] = v }

// Var returns the named variable.
func (d *Dataset) Var(name string) (*Variable, bool) {
	v, ok := d.vars[name]
	return v, ok
}

// Names returns the variable names in sorted order.
func (d *Dataset) Names() []string {
	return slices.Sorted(maps.Keys(d.vars))
}

// Coord returns the coordinate variable whose name equals name ignoring
// case. A coordinate variable is one named after its only dimension.
func (d *Dataset) Coord(name string) (*Variable, bool) {
	for _, n := range d.Names() {
		if v := d.vars[n]; strings.EqualFold(n, name) && isCoord(v) {
			return v, true
		}
	}
	return nil, false
}

// OnClose registers c to be closed with the dataset.
func (d *Dataset) OnClose(c io.Closer) { d.closers = append(d.closers, c) }

// Close releases every resource registered with the dataset.
func (d *Dataset) Close() error {
	var errs []error
	for _, c := range slices.Backward(d.closers) {
		errs = append(errs, c.Close())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// adopt moves the closers of src to d.
func (d *Dataset) adopt(src *Dataset) {
	d.closers = append(d.closers, src.closers...)
	src.closers = nil
}

// DataArray is a single variable with the coordinate variables of its
// dimensions. It owns the resources of the dataset it came from.
type DataArray struct {
	*Variable
	Coords map[string]*Variable

	closers []io.Closer
}

// DataArray projects d onto one variable. The dataset's resources move to
// the returned array.
func (d *Dataset) DataArray(name string) (*DataArray, error) {
	v, ok := d.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVariableNotFound, name)
	}
	a := &DataArray{Variable: v, Coords: map[string]*Variable{}}
	for _, dim := range v.Dims {
		if c, ok := d.vars[dim]; ok && isCoord(c) && c != v {
			a.Coords[dim] = c
		}
	}
	a.closers, d.closers = d.closers, nil
	return a, nil
}

// TimeCoord returns the coordinate named "time" ignoring case.
func (a *DataArray) TimeCoord() (*Variable, bool) {
	if isCoord(a.Variable) && strings.EqualFold(a.Name, "time") {
		return a.Variable, true
	}
	for _, c := range a.Coords {
		if strings.EqualFold(c.Name, "time") {
			return c, true
		}
	}
	return nil, false
}

// Close releases the files backing the array.
func (a *DataArray) Close() error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// CloserFunc adapts a function to io.Closer.
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

func isCoord(v *Variable) bool {
	return len(v.Dims) == 1 && v.Dims[0] == v.Name
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func leading(shape []int) int {
	if len(shape) == 0 {
		return 1
	}
	return shape[0]
}

func rowSize(shape []int) int {
	if len(shape) == 0 {
		return 1
	}
	return product(shape[1:])
}
