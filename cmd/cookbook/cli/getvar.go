package cli

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"cookbook/internal/cftime"
	"cookbook/internal/dataset"
	"cookbook/internal/resolve"
)

func newGetvarCmd(engine EngineFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "getvar <experiment> <variable>",
		Short: "Resolve a variable across the files of an experiment",
		Long: "Query the catalog for every file of the experiment that holds the variable, " +
			"combine them along time and print a summary of the resulting array.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := requestFromFlags(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			withValues, _ := cmd.Flags().GetBool("values")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			r := resolve.New(s.catalog, engine(s.cfg.Parallel, s.logger), resolve.WithLogger(s.logger))
			res, err := r.Resolve(cmd.Context(), req)
			if err != nil {
				return err
			}
			defer res.Close()

			sum := summarize(req, res)
			if withValues {
				st, err := computeStats(cmd.Context(), res.Array.Variable)
				if err != nil {
					return err
				}
				sum.Stats = &st
			}
			return sum.print(s.out)
		},
	}
	cmd.Flags().String("ncfile", "", "keep files whose path ends with this string")
	cmd.Flags().Int("n", 0, "keep the first n files, or the last -n when negative")
	cmd.Flags().String("start", "", "keep files covering times at or after this date (YYYY-MM-DD[ HH:MM:SS])")
	cmd.Flags().String("end", "", "keep files covering times at or before this date (YYYY-MM-DD[ HH:MM:SS])")
	cmd.Flags().StringToInt("chunks", nil, "chunk size overrides (e.g. time=1,st_ocean=7)")
	cmd.Flags().String("time-units", "", "rebase the time axis onto these units (e.g. \"days since 1900-01-01\")")
	cmd.Flags().Int("offset", 0, "add this value to the raw time axis before decoding")
	cmd.Flags().Bool("values", false, "read the data and report count, min, max and mean")
	return cmd
}

func requestFromFlags(cmd *cobra.Command, experiment, variable string) (resolve.Request, error) {
	flags := cmd.Flags()
	req := resolve.Request{Experiment: experiment, Variable: variable}
	req.NCFile, _ = flags.GetString("ncfile")
	req.TimeUnits, _ = flags.GetString("time-units")
	req.Chunks, _ = flags.GetStringToInt("chunks")

	if flags.Changed("n") {
		n, _ := flags.GetInt("n")
		req.N = &n
	}
	if flags.Changed("offset") {
		off, _ := flags.GetInt("offset")
		req.Offset = &off
	}
	for _, bound := range []struct {
		flag string
		dst  *cftime.DateTime
	}{{"start", &req.Start}, {"end", &req.End}} {
		v, _ := flags.GetString(bound.flag)
		if v == "" {
			continue
		}
		d, err := cftime.ParseDateTime(v)
		if err != nil {
			return resolve.Request{}, fmt.Errorf("--%s: %w", bound.flag, err)
		}
		*bound.dst = d
	}
	if req.TimeUnits != "" {
		if _, err := cftime.ParseUnits(req.TimeUnits); err != nil {
			return resolve.Request{}, fmt.Errorf("--time-units: %w", err)
		}
	}
	return req, nil
}

type stats struct {
	Count int     `json:"count"`
	NaN   int     `json:"nan"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// computeStats reads v chunk by chunk. NaN values are counted but excluded
// from min, max and mean.
func computeStats(ctx context.Context, v *dataset.Variable) (stats, error) {
	st := stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, c := range v.Chunks() {
		values, err := v.ReadChunk(ctx, c)
		if err != nil {
			return stats{}, fmt.Errorf("read %s chunk at %v: %w", v.Name, c.Origin, err)
		}
		for _, x := range values {
			if math.IsNaN(x) {
				st.NaN++
				continue
			}
			st.Count++
			sum += x
			st.Min = math.Min(st.Min, x)
			st.Max = math.Max(st.Max, x)
		}
	}
	if st.Count == 0 {
		st.Min, st.Max, st.Mean = math.NaN(), math.NaN(), math.NaN()
		return st, nil
	}
	st.Mean = sum / float64(st.Count)
	return st, nil
}

type getvarSummary struct {
	Experiment  string            `json:"experiment"`
	Variable    string            `json:"variable"`
	Dims        []string          `json:"dims"`
	Shape       []int             `json:"shape"`
	Chunks      []int             `json:"chunks"`
	Plan        dataset.ChunkPlan `json:"plan"`
	Files       []string          `json:"files"`
	TimeUnits   string            `json:"timeUnits,omitempty"`
	Calendar    string            `json:"calendar,omitempty"`
	TimeStart   string            `json:"timeStart,omitempty"`
	TimeEnd     string            `json:"timeEnd,omitempty"`
	TimeWarning string            `json:"timeWarning,omitempty"`
	Stats       *stats            `json:"stats,omitempty"`
}

func summarize(req resolve.Request, res *resolve.Result) getvarSummary {
	arr := res.Array
	sum := getvarSummary{
		Experiment: req.Experiment,
		Variable:   req.Variable,
		Dims:       arr.Dims,
		Shape:      arr.Shape(),
		Chunks:     arr.ChunkShape(),
		Plan:       res.Plan,
		Files:      make([]string, len(res.Files)),
	}
	for i, f := range res.Files {
		sum.Files[i] = f.Path
	}
	if tc, ok := arr.TimeCoord(); ok {
		sum.TimeUnits = tc.StringAttr("units")
		sum.Calendar = tc.StringAttr("calendar")
		if n := len(tc.Dates); n > 0 {
			sum.TimeStart = tc.Dates[0].String()
			sum.TimeEnd = tc.Dates[n-1].String()
		}
	}
	if res.TimeDecodeErr != nil {
		sum.TimeWarning = "time left undecoded: " + res.TimeDecodeErr.Error()
	}
	return sum
}

func (s getvarSummary) print(p *printer) error {
	if p.isJSON() {
		if s.Stats != nil && s.Stats.Count == 0 {
			// encoding/json rejects NaN.
			st := *s.Stats
			st.Min, st.Max, st.Mean = 0, 0, 0
			s.Stats = &st
		}
		return p.json(s)
	}
	pairs := [][2]string{
		{"Experiment", s.Experiment},
		{"Variable", s.Variable},
		{"Dims", strings.Join(s.Dims, ", ")},
		{"Shape", joinInts(s.Shape)},
		{"Chunks", joinInts(s.Chunks)},
		{"Files", fmt.Sprintf("%d", len(s.Files))},
	}
	if len(s.Files) > 0 {
		pairs = append(pairs, [2]string{"First file", s.Files[0]}, [2]string{"Last file", s.Files[len(s.Files)-1]})
	}
	if s.TimeUnits != "" {
		pairs = append(pairs, [2]string{"Time units", s.TimeUnits})
	}
	if s.Calendar != "" {
		pairs = append(pairs, [2]string{"Calendar", s.Calendar})
	}
	if s.TimeStart != "" {
		pairs = append(pairs, [2]string{"Time range", s.TimeStart + " to " + s.TimeEnd})
	}
	if s.TimeWarning != "" {
		pairs = append(pairs, [2]string{"Warning", s.TimeWarning})
	}
	if st := s.Stats; st != nil {
		pairs = append(pairs,
			[2]string{"Count", fmt.Sprintf("%d", st.Count)},
			[2]string{"NaN", fmt.Sprintf("%d", st.NaN)},
			[2]string{"Min", fmt.Sprintf("%g", st.Min)},
			[2]string{"Max", fmt.Sprintf("%g", st.Max)},
			[2]string{"Mean", fmt.Sprintf("%g", st.Mean)},
		)
	}
	p.kv(pairs)
	return nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
