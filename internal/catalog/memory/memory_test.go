package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"cookbook/internal/catalog"
	"cookbook/internal/cftime"
)

var tempLayout = Layout{Dimensions: "('time', 'yt_ocean', 'xt_ocean')", Chunking: "[1, 300, 360]"}

func testCatalog() *Catalog {
	year := func(y int) (cftime.DateTime, cftime.DateTime) { return cftime.Date(y, 1, 1), cftime.Date(y, 12, 31) }
	s0, e0 := year(1999)
	s1, e1 := year(2000)
	s2, e2 := year(2001)
	return New(
		File{Path: "/d/output001/ocean.nc", Experiment: "e", TimeStart: s1, TimeEnd: e1,
			Vars: map[string]Layout{"temp": tempLayout, "salt": tempLayout}},
		File{Path: "/d/output002/ocean.nc", Experiment: "e", TimeStart: s2, TimeEnd: e2, Missing: true,
			Vars: map[string]Layout{"temp": tempLayout}},
		File{Path: "/d/output000/ocean.nc", Experiment: "e", TimeStart: s0, TimeEnd: e0,
			Vars: map[string]Layout{"temp": tempLayout}},
		File{Path: "/d/output000/ice.nc", Experiment: "e", TimeStart: s0, TimeEnd: e0,
			Vars: map[string]Layout{"temp": tempLayout}},
	)
}

func paths(recs []catalog.FileRecord) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.Path)
	}
	return out
}

func TestQueryOrderAndFilters(t *testing.T) {
	c := testCatalog()
	ctx := context.Background()

	recs, err := c.Query(ctx, catalog.Query{Experiment: "e", Variable: "temp"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"/d/output000/ice.nc", "/d/output000/ocean.nc", "/d/output001/ocean.nc"}
	if got := paths(recs); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if !reflect.DeepEqual(recs[0].ChunkSizes, []int{1, 300, 360}) {
		t.Errorf("chunk sizes: %v", recs[0].ChunkSizes)
	}

	recs, err = c.Query(ctx, catalog.Query{Experiment: "e", Variable: "temp", NCFile: "ocean.nc", Start: cftime.Date(2000, 6, 1)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got := paths(recs); !reflect.DeepEqual(got, []string{"/d/output001/ocean.nc"}) {
		t.Errorf("filtered: got %v", got)
	}
}

func TestQueryBadLayout(t *testing.T) {
	c := New(File{Path: "/d/a.nc", Experiment: "e", Vars: map[string]Layout{"v": {Dimensions: "('x',)", Chunking: "[1, 2]"}}})
	_, err := c.Query(context.Background(), catalog.Query{Experiment: "e", Variable: "v"})
	if !errors.Is(err, catalog.ErrLayout) {
		t.Fatalf("got %v, want ErrLayout", err)
	}
}

func TestQueryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testCatalog().Query(ctx, catalog.Query{Experiment: "e", Variable: "temp"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestLister(t *testing.T) {
	c := testCatalog()
	c.Add(File{Path: "/x/a.nc", Experiment: "other", Vars: map[string]Layout{"u": tempLayout}})
	ctx := context.Background()

	expts, _ := c.Experiments(ctx)
	if !reflect.DeepEqual(expts, []string{"e", "other"}) {
		t.Errorf("experiments: %v", expts)
	}
	vars, _ := c.Variables(ctx, "e")
	if !reflect.DeepEqual(vars, []string{"salt", "temp"}) {
		t.Errorf("variables: %v", vars)
	}
	files, _ := c.Files(ctx, "e", "")
	if len(files) != 4 || files[0].Variable != "salt" {
		t.Errorf("files: %+v", files)
	}
	files, _ = c.Files(ctx, "e", "salt")
	if got := paths(files); !reflect.DeepEqual(got, []string{"/d/output001/ocean.nc"}) {
		t.Errorf("salt files: %v", got)
	}
}
