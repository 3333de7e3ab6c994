package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the CLI
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "darkfigure",
		Short:         "Rolling synthetic assignment of unobserved offenses to arrested individuals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logLevel
			if !cmd.Flags().Changed("log") {
				env, err := LoadEnv()
				if err != nil {
					return err
				}
				level = env.LogLevel
			}
			parsed, err := logrus.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("invalid log level: %s", level)
			}
			logrus.SetLevel(parsed)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	root.AddCommand(newRunCmd(), newSweepCmd(), newCacheKeyCmd())
	return root
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("%v", err)
	}
}
