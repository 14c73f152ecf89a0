// Package main provides the entry point for the sensortrend CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/sensortrend/cmd/sensortrend/commands"
	"github.com/Sumatoshi-tech/sensortrend/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "sensortrend",
		Short: "Sensor dataset statistics and trend detection",
		Long: `sensortrend normalizes sensor readings from CSV datasets and reports
mean, variance, standard deviation, anomaly counts and the windowed trend.

Commands:
  run       Process one or more datasets
  validate  Check a JSON report against the report schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP(commands.FlagVerbose, "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolP(commands.FlagQuiet, "q", false, "suppress log output below errors")

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sensortrend %s\n", version.String())
		},
	}
}
