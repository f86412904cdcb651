package resolve

import (
	"context"

	"cookbook/internal/cftime"
	"cookbook/internal/dataset"
)

// TimeOptions drives NormalizeTime. Units and Calendar describe the raw
// values as declared by the catalog; the calendar is never changed.
type TimeOptions struct {
	Units    string
	Calendar string

	// TargetUnits, when set and different from Units, rebases the values.
	TargetUnits string
	// Offset is added to the values after any rebase, in their units.
	Offset *int
}

// NormalizeTime adjusts the coordinate of ds named "time" (ignoring case):
// rebase onto TargetUnits, add Offset, then decode with the effective units.
// It does nothing when there is no such coordinate.
//
// A failed rebase or read is returned as err. A failed final decode is not
// fatal: it is returned as decodeErr and the coordinate keeps its numeric
// values.
func NormalizeTime(ctx context.Context, ds *dataset.Dataset, opts TimeOptions) (decodeErr, err error) {
	tc, ok := ds.Coord("time")
	if !ok {
		return nil, nil
	}
	values, err := tc.Load(ctx)
	if err != nil {
		return nil, err
	}

	units := opts.Units
	if opts.TargetUnits != "" && opts.TargetUnits != opts.Units {
		values, err = cftime.Rebase(values, opts.Units, opts.TargetUnits, opts.Calendar)
		if err != nil {
			return nil, err
		}
		units = opts.TargetUnits
	}
	if opts.Offset != nil {
		for i := range values {
			values[i] += float64(*opts.Offset)
		}
	}
	if err := tc.SetValues(values); err != nil {
		return nil, err
	}
	tc.Attrs["units"] = units
	if opts.Calendar != "" {
		tc.Attrs["calendar"] = opts.Calendar
	}

	dates, err := cftime.Decode(values, units, opts.Calendar)
	if err != nil {
		return err, nil
	}
	tc.Dates = dates
	return nil, nil
}
