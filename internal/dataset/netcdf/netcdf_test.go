package netcdf

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookbook/internal/dataset"
)

func attrMap(t *testing.T, kv ...string) api.AttributeMap {
	t.Helper()
	var keys []string
	vals := map[string]any{}
	for i := 0; i < len(kv); i += 2 {
		keys = append(keys, kv[i])
		vals[kv[i]] = kv[i+1]
	}
	m, err := util.NewOrderedMap(keys, vals)
	require.NoError(t, err)
	return m
}

// writeMonth writes an ocean file with temp(time, yt, xt) float32, a
// float64 time axis, coordinates yt and xt, and an unrelated salt(st_ocean).
func writeMonth(t *testing.T, dir string, month int, nx int) string {
	t.Helper()
	path := filepath.Join(dir, "ocean_"+string(rune('a'+month))+".nc")
	w, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	temp := make([][][]float32, 2)
	for i := range temp {
		temp[i] = make([][]float32, 3)
		for j := range temp[i] {
			temp[i][j] = make([]float32, nx)
			for k := range temp[i][j] {
				temp[i][j][k] = float32(1000*month + 100*i + 10*j + k)
			}
		}
	}
	xt := make([]float64, nx)
	for k := range xt {
		xt[k] = float64(k) + 0.5
	}

	vars := []struct {
		name string
		v    api.Variable
	}{
		{"time", api.Variable{Values: []float64{float64(2 * month), float64(2*month + 1)}, Dimensions: []string{"time"},
			Attributes: attrMap(t, "units", "days since 1900-01-01 00:00:00", "calendar", "noleap")}},
		{"yt", api.Variable{Values: []float64{-1, 0, 1}, Dimensions: []string{"yt"}, Attributes: attrMap(t, "units", "degrees_north")}},
		{"xt", api.Variable{Values: xt, Dimensions: []string{"xt"}, Attributes: attrMap(t, "units", "degrees_east")}},
		{"temp", api.Variable{Values: temp, Dimensions: []string{"time", "yt", "xt"}, Attributes: attrMap(t, "units", "K")}},
		{"salt", api.Variable{Values: []int16{1, 2, 3, 4, 5}, Dimensions: []string{"st_ocean"}, Attributes: attrMap(t)}},
	}
	for _, v := range vars {
		require.NoError(t, w.AddVar(v.name, v.v))
	}
	require.NoError(t, w.Close())
	return path
}

func TestOpen(t *testing.T) {
	path := writeMonth(t, t.TempDir(), 0, 4)
	ctx := context.Background()

	d, err := New().Open(ctx, path)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, []string{"salt", "temp", "time", "xt", "yt"}, d.Names())

	temp, _ := d.Var("temp")
	assert.Equal(t, []string{"time", "yt", "xt"}, temp.Dims)
	assert.Equal(t, []int{2, 3, 4}, temp.Shape())
	assert.Equal(t, "K", temp.StringAttr("units"))

	salt, _ := d.Var("salt")
	vals, err := salt.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, vals)

	vals, err = temp.ReadChunk(ctx, dataset.Chunk{Origin: []int{1, 2, 1}, Shape: []int{1, 1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []float64{121, 122}, vals)
}

func TestOpenCombined(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeMonth(t, dir, 0, 4), writeMonth(t, dir, 1, 4), writeMonth(t, dir, 2, 4)}
	ctx := context.Background()

	e := New(WithParallel(2))
	d, err := e.OpenCombined(ctx, paths, dataset.ChunkPlan{"time": 1, "yt": 0, "xt": 2}, dataset.SelectVariable("temp"))
	require.NoError(t, err)
	defer d.Close()

	_, ok := d.Var("salt")
	assert.False(t, ok)

	temp, _ := d.Var("temp")
	assert.Equal(t, []int{6, 3, 4}, temp.Shape())
	assert.Equal(t, []int{1, 3, 2}, temp.ChunkShape())
	assert.Len(t, temp.Chunks(), 12)

	tc, ok := d.Coord("time")
	require.True(t, ok)
	times, err := tc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5}, times)
	assert.Equal(t, "noleap", tc.StringAttr("calendar"))

	// Row 3 is the second step of the second file.
	vals, err := temp.ReadChunk(ctx, dataset.Chunk{Origin: []int{3, 0, 0}, Shape: []int{1, 1, 4}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1100, 1101, 1102, 1103}, vals)
}

func TestOpenCombinedErrors(t *testing.T) {
	dir := t.TempDir()
	ok := writeMonth(t, dir, 0, 4)
	ctx := context.Background()

	_, err := New().OpenCombined(ctx, []string{ok, filepath.Join(dir, "absent.nc")}, nil, dataset.SelectVariable("temp"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = New().OpenCombined(ctx, []string{ok}, nil, dataset.SelectVariable("u"))
	assert.ErrorIs(t, err, dataset.ErrVariableNotFound)

	wide := writeMonth(t, t.TempDir(), 1, 5)
	_, err = New().OpenCombined(ctx, []string{ok, wide}, nil, dataset.SelectVariable("temp"))
	assert.ErrorIs(t, err, dataset.ErrShapeMismatch)
}

func TestReadAfterClose(t *testing.T) {
	path := writeMonth(t, t.TempDir(), 0, 2)
	d, err := New().Open(context.Background(), path)
	require.NoError(t, err)
	temp, _ := d.Var("temp")
	require.NoError(t, d.Close())

	_, err = temp.Load(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFlatten(t *testing.T) {
	got, err := flatten(nil, [][]int32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, got)

	got, err = flatten(nil, float32(2.5))
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5}, got)

	_, err = flatten(nil, []string{"a"})
	assert.Error(t, err)
}
