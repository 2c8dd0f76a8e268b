package thermostat

import "time"

const (
	DefaultTolerance = 0.3
	DefaultMinTemp   = 7.0
	DefaultMaxTemp   = 35.0

	PrecisionTenths = 0.1
	PrecisionHalves = 0.5
	PrecisionWhole  = 1.0
)

// Config is fixed for the lifetime of a Thermostat. Pointer fields are
// optional and resolved once in New.
type Config struct {
	ColdTolerance    float64
	HotTolerance     float64
	MinCycleDuration time.Duration
	ReverseCycle     bool

	MinTemp *float64
	MaxTemp *float64

	// TargetLow and TargetHigh are used on a cold start, when nothing has
	// been restored.
	TargetLow  *float64
	TargetHigh *float64

	InitialMode Mode // ModeUnknown means not configured
	Unit        Unit
	Precision   float64 // 0 selects the unit default
}

func (c *Config) Validate() error {
	if c.ColdTolerance < 0 || c.HotTolerance < 0 {
		return ErrInvalidTolerance
	}
	if c.MinCycleDuration < 0 {
		return ErrInvalidCycleDuration
	}
	if c.MinTemp != nil && c.MaxTemp != nil && *c.MinTemp > *c.MaxTemp {
		return ErrInvalidMinMax
	}
	if c.InitialMode != ModeUnknown && !c.InitialMode.Valid() {
		return ErrInvalidMode
	}
	if c.Unit != "" && !c.Unit.Valid() {
		return ErrInvalidUnit
	}
	switch c.Precision {
	case 0, PrecisionTenths, PrecisionHalves, PrecisionWhole:
	default:
		return ErrInvalidPrecision
	}
	return nil
}

// resolved holds Config with every default applied.
type resolved struct {
	coldTolerance    float64
	hotTolerance     float64
	minCycleDuration time.Duration
	reverseCycle     bool
	minTemp          float64
	maxTemp          float64
	unit             Unit
	precision        float64
}

func (c *Config) resolve() resolved {
	r := resolved{
		coldTolerance:    c.ColdTolerance,
		hotTolerance:     c.HotTolerance,
		minCycleDuration: c.MinCycleDuration,
		reverseCycle:     c.ReverseCycle,
		minTemp:          DefaultMinTemp,
		maxTemp:          DefaultMaxTemp,
		unit:             c.Unit,
		precision:        c.Precision,
	}
	if r.unit == "" {
		r.unit = Celsius
	}
	if r.unit == Fahrenheit {
		r.minTemp = celsiusToFahrenheit(DefaultMinTemp)
		r.maxTemp = celsiusToFahrenheit(DefaultMaxTemp)
	}
	if c.MinTemp != nil {
		r.minTemp = *c.MinTemp
	}
	if c.MaxTemp != nil {
		r.maxTemp = *c.MaxTemp
	}
	if r.precision == 0 {
		if r.unit == Celsius {
			r.precision = PrecisionTenths
		} else {
			r.precision = PrecisionWhole
		}
	}
	return r
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
