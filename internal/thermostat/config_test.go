package thermostat

import (
	"testing"
	"time"
)

func assertError(t *testing.T, err error, expected error) {
	t.Helper()
	if err != expected {
		t.Fatalf("expected %v, got %v", expected, err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"zero value", Config{}, nil},
		{"full", Config{
			ColdTolerance:    0.5,
			HotTolerance:     0.2,
			MinCycleDuration: 5 * time.Minute,
			MinTemp:          floatPtr(10),
			MaxTemp:          floatPtr(30),
			InitialMode:      ModeHeatCool,
			Unit:             Celsius,
			Precision:        PrecisionHalves,
		}, nil},
		{"negative cold tolerance", Config{ColdTolerance: -0.1}, ErrInvalidTolerance},
		{"negative hot tolerance", Config{HotTolerance: -1}, ErrInvalidTolerance},
		{"negative min cycle", Config{MinCycleDuration: -time.Second}, ErrInvalidCycleDuration},
		{"min above max", Config{MinTemp: floatPtr(30), MaxTemp: floatPtr(10)}, ErrInvalidMinMax},
		{"bad initial mode", Config{InitialMode: Mode(12)}, ErrInvalidMode},
		{"bad unit", Config{Unit: "K"}, ErrInvalidUnit},
		{"bad precision", Config{Precision: 0.25}, ErrInvalidPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, tt.cfg.Validate(), tt.want)
		})
	}
}
