package thermostat

import "fmt"

// Mode is an integer enum.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeOff
	ModeHeat
	ModeCool
	ModeHeatCool
)

func (m Mode) Valid() bool {
	return m == ModeOff || m == ModeHeat || m == ModeCool || m == ModeHeatCool
}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeHeat:
		return "heat"
	case ModeCool:
		return "cool"
	case ModeHeatCool:
		return "heat_cool"
	default:
		return "unknown"
	}
}

// ParseMode accepts the lower-case names returned by String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "off":
		return ModeOff, nil
	case "heat":
		return ModeHeat, nil
	case "cool":
		return ModeCool, nil
	case "heat_cool":
		return ModeHeatCool, nil
	default:
		return ModeUnknown, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// HVACAction is what the equipment is currently doing, derived from mode and
// observed actuator states.
type HVACAction int

const (
	ActionOff HVACAction = iota
	ActionIdle
	ActionHeating
	ActionCooling
)

func (a HVACAction) String() string {
	switch a {
	case ActionOff:
		return "off"
	case ActionIdle:
		return "idle"
	case ActionHeating:
		return "heating"
	case ActionCooling:
		return "cooling"
	default:
		return "unknown"
	}
}

// Actuator identifies one of the two switched outputs.
type Actuator int

const (
	Heater Actuator = iota
	Cooler
)

func (a Actuator) String() string {
	switch a {
	case Heater:
		return "heater"
	case Cooler:
		return "cooler"
	default:
		return "unknown"
	}
}

func ParseActuator(s string) (Actuator, error) {
	switch s {
	case "heater":
		return Heater, nil
	case "cooler":
		return Cooler, nil
	default:
		return 0, fmt.Errorf("invalid actuator: %q", s)
	}
}

// Unit is the temperature unit the setpoints and readings are expressed in.
type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

func (u Unit) Valid() bool {
	return u == Celsius || u == Fahrenheit
}

// Sensor and switch states that carry no usable value.
const (
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
	StateOn          = "on"
	StateOff         = "off"
)
