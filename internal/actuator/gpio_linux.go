//go:build linux

package actuator

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// NewGPIO requests both relay lines as outputs, initially off.
func NewGPIO(cfg GPIOConfig) (*GPIO, error) {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	if cfg.HeaterLine == cfg.CoolerLine {
		return nil, fmt.Errorf("gpio actuator: heater and cooler need distinct lines")
	}

	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	heater, err := chip.RequestLine(cfg.HeaterLine, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request heater line %d: %w", cfg.HeaterLine, err)
	}
	cooler, err := chip.RequestLine(cfg.CoolerLine, opts...)
	if err != nil {
		heater.Close()
		chip.Close()
		return nil, fmt.Errorf("request cooler line %d: %w", cfg.CoolerLine, err)
	}

	return newGPIO(heater, cooler, chip.Close), nil
}
