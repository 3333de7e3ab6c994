package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCacheKeyCmd() *cobra.Command {
	var flags paramFlags
	cmd := &cobra.Command{
		Use:   "cache-key",
		Short: "Print the cache path of each seed without computing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			p := s.Params
			for _, seed := range s.Seeds {
				p.Seed = seed
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(s.CacheDir, p.CacheKey())); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
