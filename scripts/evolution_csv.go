package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Agrid-Dev/dualstat/internal/simulation"
	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

// A winter day: the room starts cold in heat_cool, the range is narrowed
// after two hours and the thermostat is switched off for the night.
func dayScenario() simulation.Scenario {
	low, high := 19.0, 24.0
	narrowLow, narrowHigh := 20.5, 22.0
	off := thermostat.ModeOff

	return simulation.Scenario{
		Thermostat: thermostat.Config{
			ColdTolerance:    0.3,
			HotTolerance:     0.3,
			MinCycleDuration: 5 * time.Minute,
			TargetLow:        &low,
			TargetHigh:       &high,
			InitialMode:      thermostat.ModeHeatCool,
		},
		Room: simulation.RoomParams{
			OutdoorTemperature: 4,
			LossCoefficient:    1.e-4,
			HeaterPower:        3.e-3,
			CoolerPower:        3.e-3,
		},
		InitialTemperature: 16,
		Steps:              1440,
		Step:               time.Minute,
		Events: []simulation.Event{
			{Step: 120, TargetLow: &narrowLow, TargetHigh: &narrowHigh},
			{Step: 1080, Mode: &off},
		},
	}
}

func main() {
	filename := "dualstat.csv"
	if len(os.Args) > 1 {
		filename = os.Args[1]
	}

	file, err := os.Create(filename)
	if err != nil {
		ui.Fatal("failed to create CSV file: %v", err)
	}
	defer file.Close()

	if err := simulation.Run(context.Background(), dayScenario(), file); err != nil {
		ui.Fatal("simulation failed: %v", err)
	}
	fmt.Println("wrote", filename)
}
