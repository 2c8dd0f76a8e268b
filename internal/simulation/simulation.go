package simulation

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Agrid-Dev/dualstat/internal/actuator"
	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

// Event changes the thermostat settings before the given step runs.
type Event struct {
	Step       int
	Mode       *thermostat.Mode
	TargetLow  *float64
	TargetHigh *float64
}

type Scenario struct {
	Thermostat         thermostat.Config
	Room               RoomParams
	InitialTemperature float64
	Steps              int
	Step               time.Duration
	Events             []Event
}

// Header is the first CSV record written by Run.
var Header = []string{"step", "elapsed_s", "temperature", "target_low", "target_high", "mode", "hvac_action", "heater", "cooler"}

// Run plays sc on simulated time and writes one CSV record per step.
func Run(ctx context.Context, sc Scenario, w io.Writer) error {
	if sc.Step <= 0 {
		return ErrInvalidStep
	}
	room, err := NewRoom(sc.Room, sc.InitialTemperature)
	if err != nil {
		return err
	}

	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }

	switches := actuator.NewMemory()
	th, err := thermostat.New(sc.Thermostat, switches, thermostat.WithClock(clock))
	if err != nil {
		return fmt.Errorf("failed to create thermostat: %w", err)
	}
	switches.OnStateChange(th.OnActuatorStateChange)

	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range sc.Steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for _, ev := range sc.Events {
			if ev.Step == i {
				if err := apply(th, ev); err != nil {
					return fmt.Errorf("event at step %d: %w", i, err)
				}
			}
		}

		th.OnSensorUpdate(strconv.FormatFloat(room.Temperature(), 'f', 3, 64))
		snap := th.Get()

		low, high := th.TargetRange()
		if err := writer.Write([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(now.Sub(start).Seconds(), 'f', 0, 64),
			fmt.Sprintf("%.2f", room.Temperature()),
			fmt.Sprintf("%.2f", low),
			fmt.Sprintf("%.2f", high),
			snap.Mode.String(),
			snap.Action.String(),
			strconv.FormatBool(snap.HeaterOn),
			strconv.FormatBool(snap.CoolerOn),
		}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}

		room.Step(snap.HeaterOn, snap.CoolerOn, sc.Step)
		now = now.Add(sc.Step)
	}

	writer.Flush()
	return writer.Error()
}

func apply(th *thermostat.Thermostat, ev Event) error {
	if ev.Mode != nil {
		if err := th.SetMode(*ev.Mode); err != nil {
			return err
		}
	}
	if ev.TargetLow == nil && ev.TargetHigh == nil {
		return nil
	}
	low, high := th.TargetRange()
	if ev.TargetLow != nil {
		low = *ev.TargetLow
	}
	if ev.TargetHigh != nil {
		high = *ev.TargetHigh
	}
	return th.SetTargetRange(low, high)
}
