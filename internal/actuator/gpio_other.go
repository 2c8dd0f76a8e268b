//go:build !linux

package actuator

import "errors"

// NewGPIO returns an error on non-Linux platforms.
func NewGPIO(GPIOConfig) (*GPIO, error) {
	return nil, errors.New("gpio actuator: not supported on this platform (requires Linux)")
}
