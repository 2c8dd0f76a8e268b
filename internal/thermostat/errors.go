package thermostat

import "errors"

var (
	ErrInvalidMode          = errors.New("invalid mode")
	ErrInvalidUnit          = errors.New("invalid temperature unit")
	ErrInvalidTolerance     = errors.New("tolerances must be greater or equal to zero")
	ErrInvalidCycleDuration = errors.New("min cycle duration must be greater or equal to zero")
	ErrInvalidMinMax        = errors.New("invalid min/max temperatures")
	ErrInvalidPrecision     = errors.New("precision must be one of 0.1, 0.5 or 1")
	ErrInvertedRange        = errors.New("target high must be greater or equal to target low")
	ErrNilDriver            = errors.New("actuator driver is required")
)
