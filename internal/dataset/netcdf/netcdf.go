// Package netcdf opens netCDF files (classic CDF and netCDF-4/HDF5) as lazy
// datasets using the pure-Go go-native-netcdf reader.
//
// Opening a file reads only its header. Variable data is fetched with
// VarGetter.GetSlice along the leading dimension when a chunk is read, and
// every numeric type is widened to float64.
package netcdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	native "github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"cookbook/internal/dataset"
	"cookbook/internal/logging"
)

// ErrClosed is returned when reading a variable whose file has been closed.
var ErrClosed = errors.New("netcdf file closed")

// Engine is a dataset.Opener for files on disk.
type Engine struct {
	parallel int
	logger   *slog.Logger
}

var _ dataset.Opener = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithParallel bounds the number of files opened concurrently.
func WithParallel(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallel = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New returns an engine opening up to GOMAXPROCS files at once.
func New(opts ...Option) *Engine {
	e := &Engine{parallel: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.Default(e.logger).With("component", "netcdf")
	return e
}

func (e *Engine) OpenCombined(ctx context.Context, paths []string, plan dataset.ChunkPlan, preprocess dataset.Preprocessor) (*dataset.Dataset, error) {
	return dataset.OpenCombined(ctx, paths, plan, preprocess, e.Open, e.parallel)
}

// dimensioner is implemented by both the CDF and HDF5 groups.
type dimensioner interface {
	GetDimension(name string) (uint64, bool)
}

// Open reads the header of one file. Open errors from the reader are
// returned as is.
func (e *Engine) Open(ctx context.Context, path string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := native.Open(path)
	if err != nil {
		return nil, err
	}
	f := &file{group: g}

	d := dataset.New()
	d.Attrs = attrs(g.Attributes())
	for _, name := range g.ListVariables() {
		vg, err := g.GetVarGetter(name)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("%s: variable %s: %w", path, name, err)
		}
		shape, err := shapeOf(g, vg)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("%s: variable %s: %w", path, name, err)
		}
		v, err := dataset.NewVariable(name, vg.Dimensions(), attrs(vg.Attributes()), &array{file: f, vg: vg, shape: shape})
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		d.Add(v)
	}
	d.OnClose(dataset.CloserFunc(f.close))

	e.logger.Debug("opened file", "path", path, "variables", len(d.Names()))
	return d, nil
}

func shapeOf(g api.Group, vg api.VarGetter) ([]int, error) {
	dims := vg.Dimensions()
	shape := make([]int, len(dims))
	if len(dims) == 0 {
		return shape, nil
	}
	// The leading dimension may be unlimited, so its length comes from the
	// variable rather than the dimension table.
	shape[0] = int(vg.Len())
	dg, _ := g.(dimensioner)
	for i := 1; i < len(dims); i++ {
		if dg != nil {
			if n, ok := dg.GetDimension(dims[i]); ok {
				shape[i] = int(n)
				continue
			}
		}
		cv, err := g.GetVarGetter(dims[i])
		if err != nil {
			return nil, fmt.Errorf("length of dimension %s: %w", dims[i], err)
		}
		shape[i] = int(cv.Len())
	}
	return shape, nil
}

func attrs(m api.AttributeMap) map[string]any {
	out := map[string]any{}
	if m == nil {
		return out
	}
	for _, k := range m.Keys() {
		if v, ok := m.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// file serialises reads on one open group; the readers seek a shared
// file handle.
type file struct {
	mu     sync.Mutex
	group  api.Group
	closed bool
}

func (f *file) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.group.Close()
		f.closed = true
	}
	return nil
}

type array struct {
	file  *file
	vg    api.VarGetter
	shape []int
}

func (a *array) Shape() []int { return a.shape }

func (a *array) Read(ctx context.Context, begin, end int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, row := 1, 1
	if len(a.shape) > 0 {
		rows = a.shape[0]
		for _, n := range a.shape[1:] {
			row *= n
		}
	}
	if begin < 0 || end > rows || begin > end {
		return nil, fmt.Errorf("read rows [%d, %d) of %d", begin, end, rows)
	}
	if begin == end {
		return []float64{}, nil
	}

	a.file.mu.Lock()
	if a.file.closed {
		a.file.mu.Unlock()
		return nil, ErrClosed
	}
	var raw any
	var err error
	if len(a.shape) == 0 {
		raw, err = a.vg.Values()
	} else {
		raw, err = a.vg.GetSlice(int64(begin), int64(end))
	}
	a.file.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out, err := flatten(make([]float64, 0, (end-begin)*row), raw)
	if err != nil {
		return nil, err
	}
	if len(out) != (end-begin)*row {
		return nil, fmt.Errorf("%w: read %d values, want %d", dataset.ErrShapeMismatch, len(out), (end-begin)*row)
	}
	return out, nil
}
