package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookbook/internal/dataset"
)

func monthly(e *Engine, n int) []string {
	var paths []string
	for i := range n {
		path := fmt.Sprintf("/data/output%03d/ocean.nc", i)
		e.Add(path,
			Var{Name: "temp", Dims: []string{"time", "xt"}, Shape: []int{1, 2}, Values: []float64{float64(10 * i), float64(10*i + 1)}},
			Var{Name: "time", Dims: []string{"time"}, Shape: []int{1}, Values: []float64{float64(i)},
				Attrs: map[string]any{"units": "days since 2000-01-01"}},
			Var{Name: "xt", Dims: []string{"xt"}, Shape: []int{2}, Values: []float64{0.5, 1.5}},
			Var{Name: "salt", Dims: []string{"st"}, Shape: []int{i + 1}, Values: make([]float64, i+1)},
		)
		paths = append(paths, path)
	}
	return paths
}

func TestOpenCombinedIsLazy(t *testing.T) {
	e := New(2)
	paths := monthly(e, 5)
	ctx := context.Background()

	d, err := e.OpenCombined(ctx, paths, dataset.ChunkPlan{"time": 2}, dataset.SelectVariable("temp"))
	require.NoError(t, err)
	assert.Equal(t, 5, e.OpenFiles())
	assert.Equal(t, 0, e.Reads(), "open must not read data")

	// salt differs in shape per file; it must have been projected away.
	_, ok := d.Var("salt")
	assert.False(t, ok)

	temp, ok := d.Var("temp")
	require.True(t, ok)
	assert.Equal(t, []int{5, 2}, temp.Shape())
	assert.Equal(t, []int{2, 2}, temp.ChunkShape())
	assert.Len(t, temp.Chunks(), 3)

	vals, err := temp.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 10, 11, 20, 21, 30, 31, 40, 41}, vals)

	tc, ok := d.Coord("time")
	require.True(t, ok)
	assert.Equal(t, "days since 2000-01-01", tc.StringAttr("units"))

	require.NoError(t, d.Close())
	assert.Equal(t, 0, e.OpenFiles())
}

func TestOpenCombinedFailureClosesFiles(t *testing.T) {
	e := New(0)
	paths := monthly(e, 3)
	ctx := context.Background()

	_, err := e.OpenCombined(ctx, append(paths, "/data/missing.nc"), nil, dataset.SelectVariable("temp"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 0, e.OpenFiles())

	e.Add("/data/other.nc", Var{Name: "u", Dims: []string{"time"}, Shape: []int{1}, Values: []float64{1}})
	_, err = e.OpenCombined(ctx, append(paths, "/data/other.nc"), nil, dataset.SelectVariable("temp"))
	assert.ErrorIs(t, err, dataset.ErrVariableNotFound)
	assert.Contains(t, err.Error(), "/data/other.nc")
	assert.Equal(t, 0, e.OpenFiles())

	e.Add("/data/wide.nc", Var{Name: "temp", Dims: []string{"time", "xt"}, Shape: []int{1, 3}, Values: []float64{1, 2, 3}})
	_, err = e.OpenCombined(ctx, append(paths, "/data/wide.nc"), nil, dataset.SelectVariable("temp"))
	assert.ErrorIs(t, err, dataset.ErrShapeMismatch)
	assert.Equal(t, 0, e.OpenFiles())
}

func TestOpenCanceled(t *testing.T) {
	e := New(1)
	paths := monthly(e, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.OpenCombined(ctx, paths, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if n := e.OpenFiles(); n != 0 {
		t.Errorf("%d files left open", n)
	}
}

func TestReopenIsIndependent(t *testing.T) {
	e := New(1)
	paths := monthly(e, 1)
	ctx := context.Background()

	a, err := e.Open(ctx, paths[0])
	require.NoError(t, err)
	tc, _ := a.Var("time")
	require.NoError(t, tc.SetValues([]float64{99}))

	b, err := e.Open(ctx, paths[0])
	require.NoError(t, err)
	tb, _ := b.Var("time")
	vals, err := tb.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, vals)
}
