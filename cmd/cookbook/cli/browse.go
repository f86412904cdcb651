package cli

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"cookbook/internal/catalog"
)

func newExperimentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "experiments",
		Short: "List catalogued experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.catalog.Experiments(cmd.Context())
			if err != nil {
				return err
			}
			if s.out.isJSON() {
				return s.out.json(nonNil(names))
			}
			s.out.list(names)
			return nil
		},
	}
}

func newVariablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variables <experiment>",
		Short: "List the variables of an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.catalog.Variables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if s.out.isJSON() {
				return s.out.json(nonNil(names))
			}
			s.out.list(names)
			return nil
		},
	}
}

type fileRow struct {
	Path      string `json:"path"`
	Variable  string `json:"variable"`
	Run       int    `json:"run"`
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files <experiment>",
		Short: "List the files of an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variable, _ := cmd.Flags().GetString("variable")
			pattern, _ := cmd.Flags().GetString("glob")
			if pattern != "" && !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("--glob: invalid pattern %q", pattern)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.catalog.Files(cmd.Context(), args[0], variable)
			if err != nil {
				return err
			}
			rows := filterFiles(recs, pattern)
			if s.out.isJSON() {
				return s.out.json(rows)
			}
			table := make([][]string, len(rows))
			for i, r := range rows {
				table[i] = []string{r.Path, r.Variable, fmt.Sprintf("%d", r.Run), r.Start, r.End, r.Frequency}
			}
			s.out.table([]string{"PATH", "VARIABLE", "RUN", "START", "END", "FREQUENCY"}, table)
			return nil
		},
	}
	cmd.Flags().String("variable", "", "only list files holding this variable")
	cmd.Flags().String("glob", "", "only list paths matching this pattern (supports **)")
	return cmd
}

// filterFiles keeps records whose path matches pattern; an empty pattern
// keeps all. The pattern was validated by the caller.
func filterFiles(recs []catalog.FileRecord, pattern string) []fileRow {
	rows := make([]fileRow, 0, len(recs))
	for _, r := range recs {
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, r.Path); !ok {
				continue
			}
		}
		row := fileRow{Path: r.Path, Variable: r.Variable, Run: r.Run, Frequency: r.Frequency}
		if !r.TimeStart.IsZero() {
			row.Start = r.TimeStart.String()
		}
		if !r.TimeEnd.IsZero() {
			row.End = r.TimeEnd.String()
		}
		rows = append(rows, row)
	}
	return rows
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
