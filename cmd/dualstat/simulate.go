package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Agrid-Dev/dualstat/cmd/app"
	"github.com/Agrid-Dev/dualstat/internal/simulation"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

var (
	simSteps       int
	simStep        time.Duration
	simOutdoor     float64
	simInitial     float64
	simLoss        float64
	simHeaterPower float64
	simCoolerPower float64
	simOutput      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the configured thermostat against a simulated room and print CSV",
	Long: `Plays the thermostat section of the configuration file against a simple
heat loss model of a room, on simulated time, and writes one CSV record per step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupUi()
		cfg, err := app.Load(cfgFile)
		if err != nil {
			return err
		}
		core, err := cfg.Thermostat.Core()
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if simOutput != "" && simOutput != "-" {
			f, err := os.Create(simOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		sc := simulation.Scenario{
			Thermostat: core,
			Room: simulation.RoomParams{
				OutdoorTemperature: simOutdoor,
				LossCoefficient:    simLoss,
				HeaterPower:        simHeaterPower,
				CoolerPower:        simCoolerPower,
			},
			InitialTemperature: simInitial,
			Steps:              simSteps,
			Step:               simStep,
		}
		if err := simulation.Run(cmd.Context(), sc, w); err != nil {
			return err
		}
		if w != cmd.OutOrStdout() {
			ui.Info("Wrote %d steps to %s", simSteps, simOutput)
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVarP(&simSteps, "steps", "n", 1440, "number of simulated steps")
	simulateCmd.Flags().DurationVar(&simStep, "step", time.Minute, "simulated time per step")
	simulateCmd.Flags().Float64Var(&simOutdoor, "outdoor", 5, "outdoor temperature")
	simulateCmd.Flags().Float64Var(&simInitial, "initial", 16, "initial room temperature")
	simulateCmd.Flags().Float64Var(&simLoss, "loss", 1.e-4, "heat loss coefficient, per second")
	simulateCmd.Flags().Float64Var(&simHeaterPower, "heater-power", 3.e-3, "heater power, degrees per second")
	simulateCmd.Flags().Float64Var(&simCoolerPower, "cooler-power", 3.e-3, "cooler power, degrees per second")
	simulateCmd.Flags().StringVarP(&simOutput, "output", "o", "-", "CSV output file, - for stdout")
}
