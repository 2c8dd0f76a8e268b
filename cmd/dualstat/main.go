package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Agrid-Dev/dualstat/cmd/app"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

var version = "dev"

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "dualstat",
	Short: "A dual setpoint thermostat controller.",
	Long: `dualstat keeps a room inside a target temperature range by switching
a heater and a cooler, based on a single temperature sensor.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupUi()
		cfg, err := app.Load(cfgFile)
		if err != nil {
			return err
		}
		ui.Info("Using configuration file at: %s", cfgFile)
		return runDaemon(cmd.Context(), cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of dualstat",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "path to config file (.yaml/.yml/.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "More verbose output")
	rootCmd.PersistentFlags().BoolVarP(&noColor, "no-color", "", false, "Disable all terminal output coloration")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(simulateCmd)
}

func setupUi() {
	ui.SetDebug(verbose)
	if noColor {
		pterm.DisableColor()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
