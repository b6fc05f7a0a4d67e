package sim

import "fmt"

// UnknownDeviceError is returned when an operation references a device that
// is not registered with the engine.
type UnknownDeviceError struct {
	DeviceID string
}

func (e UnknownDeviceError) Error() string {
	return fmt.Sprintf("unknown device %q", e.DeviceID)
}

// InvalidParameterError is returned when a configuration value is outside
// its valid domain.
type InvalidParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Name, e.Value, e.Reason)
}

// TimeRegressionError is returned when Tick is called with a time earlier
// than the engine's current simulated time, outside of a reset.
type TimeRegressionError struct {
	Now  VTimeInMs
	Last VTimeInMs
}

func (e TimeRegressionError) Error() string {
	return fmt.Sprintf(
		"time cannot move backward: tick at %.1f ms, engine already at %.1f ms",
		float64(e.Now), float64(e.Last))
}
