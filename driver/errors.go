package driver

import (
	"errors"
	"fmt"
)

// ErrNotExternallyDriven is returned when Advance or TickAt is called on a
// self-paced driver.
var ErrNotExternallyDriven = errors.New(
	"driver: time can only be advanced explicitly in externally driven mode")

// InvalidSpeedError is returned when the requested playback speed multiplier
// cannot be applied.
type InvalidSpeedError struct {
	Multiplier float64
	Reason     string
}

func (e InvalidSpeedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid speed %v: %s", e.Multiplier, e.Reason)
	}

	return fmt.Sprintf(
		"invalid speed %v: must be positive and finite", e.Multiplier)
}
