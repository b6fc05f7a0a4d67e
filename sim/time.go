package sim

import "math"

// VTimeInMs defines the time in the simulated space in the unit of
// millisecond. The simulated-time resolution is one millisecond.
type VTimeInMs float64

// TimeTeller can be used to get the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInMs
}

// Round snaps a simulated time to the millisecond resolution.
func (t VTimeInMs) Round() VTimeInMs {
	return VTimeInMs(math.Round(float64(t)))
}
