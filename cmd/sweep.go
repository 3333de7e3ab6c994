package cmd

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var flags paramFlags
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Materialize one parameter tuple for every seed in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			log := logrus.WithField("run_id", uuid.NewString())
			// Seeds run in parallel; each run samples its windows sequentially.
			gate, err := newGate(s, 1, nil, log)
			if err != nil {
				return err
			}
			log.Infof("Sweeping %d seeds with %d workers", len(s.Seeds), s.Workers)
			results, err := gate.Sweep(cmd.Context(), s.Params, s.Seeds, s.Workers)
			if err != nil {
				return err
			}
			reports := make([]report, len(results))
			for i, r := range results {
				reports[i] = newReport(r)
			}
			return printJSON(cmd.OutOrStdout(), "Sweep", reports)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
