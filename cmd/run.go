package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cj-pipeline/darkfigure/sim"
	"github.com/cj-pipeline/darkfigure/sim/cache"
	"github.com/cj-pipeline/darkfigure/sim/trace"
)

// traceVersion is written into exported trace headers.
const traceVersion = 1

func newRunCmd() *cobra.Command {
	var (
		flags       paramFlags
		traceLevel  string
		traceHeader string
		traceData   string
		summarize   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Materialize the rolling assignment of one parameter tuple",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if !trace.IsValidTraceLevel(traceLevel) {
				return fmt.Errorf("unknown trace level %q; valid: none, groups", traceLevel)
			}
			if (traceHeader == "") != (traceData == "") {
				return fmt.Errorf("--trace-header and --trace-data must be set together")
			}
			var tr *trace.Trace
			if trace.TraceLevel(traceLevel) == trace.TraceLevelGroups {
				tr = trace.NewTrace(trace.TraceConfig{Level: trace.TraceLevelGroups})
			} else if traceData != "" || summarize {
				return fmt.Errorf("trace export and summary require --trace-level groups")
			}

			runID := uuid.NewString()
			log := logrus.WithFields(logrus.Fields{"run_id": runID, "cache_key": s.Params.CacheKey()})
			gate, err := newGate(s, s.Workers, tr, log)
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := gate.Get(cmd.Context(), s.Params)
			if err != nil {
				return err
			}
			log.WithField("origin", res.Origin).Infof("Run complete: %d rows in %s", len(res.People), time.Since(start))

			if tr.Enabled() {
				if res.Origin != cache.OriginComputed {
					log.Warn("Result served from cache; no trace was recorded")
				} else {
					if summarize {
						if err := printJSON(cmd.OutOrStdout(), "Trace Summary", trace.Summarize(tr)); err != nil {
							return err
						}
					}
					if traceData != "" {
						header := &trace.TraceHeader{
							Version:   traceVersion,
							RunID:     runID,
							CreatedAt: time.Now().UTC().Format(time.RFC3339),
							CacheKey:  s.Params.CacheKey(),
							StartYear: s.Params.StartYear,
							EndYear:   s.Params.EndYear,
							Window:    s.Params.Window,
							Seed:      s.Params.Seed,
							Lambda:    s.Params.Lambda,
							Omega:     s.Params.Omega,
							Smoothing: s.Params.Smoothing,
						}
						if err := trace.Export(header, tr.Groups, traceHeader, traceData); err != nil {
							return err
						}
						log.Infof("Wrote %d trace records to %s", len(tr.Groups), traceData)
					}
				}
			}
			return printJSON(cmd.OutOrStdout(), "Offense Totals", newReport(res))
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Trace verbosity: none, groups")
	cmd.Flags().StringVar(&traceHeader, "trace-header", "", "Path of the exported trace header (YAML)")
	cmd.Flags().StringVar(&traceData, "trace-data", "", "Path of the exported trace records (CSV)")
	cmd.Flags().BoolVar(&summarize, "summarize-trace", false, "Print a summary of the trace")
	return cmd
}

// report is the per-tuple summary printed to stdout.
type report struct {
	Path   string              `json:"path"`
	Origin cache.Origin        `json:"origin"`
	Seed   int64               `json:"seed"`
	Rows   int                 `json:"rows"`
	Totals map[sim.Offense]int `json:"totals"`
}

func newReport(res *cache.Result) report {
	return report{
		Path:   res.Path,
		Origin: res.Origin,
		Seed:   res.Params.Seed,
		Rows:   len(res.People),
		Totals: sim.Totals(res.People),
	}
}

func printJSON(w io.Writer, title string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", title, err)
	}
	_, err = fmt.Fprintf(w, "=== %s ===\n%s\n", title, data)
	return err
}
