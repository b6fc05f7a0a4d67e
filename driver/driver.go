// Package driver supplies simulated time to the network simulation engine.
//
// A Driver runs in one of two modes. In self-paced mode it advances
// simulated time proportionally to wall-clock time and a speed multiplier,
// ticking autonomously while running. In externally driven mode the caller
// is the only source of time progression, which makes test runs fully
// deterministic: assertions can be made between ticks without races.
package driver

import (
	"math"
	"sync"
	"time"

	"github.com/synclab/netsim/sim"
)

// State is the lifecycle state of a Driver.
type State int

// The possible driver states.
const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Mode selects how simulated time progresses.
type Mode int

// The possible driver modes.
const (
	// SelfPaced advances time autonomously while running, proportional to
	// elapsed wall time and the speed multiplier.
	SelfPaced Mode = iota

	// ExternallyDriven advances time only on explicit Advance or TickAt
	// calls.
	ExternallyDriven
)

// A TickListener is notified on every advancement of simulated time. The
// full listener set is notified before the next tick is considered;
// invocation order within one tick is unspecified.
type TickListener interface {
	OnTick(now sim.VTimeInMs)
}

// defaultPeriod is the wall-clock interval between self-paced ticks.
const defaultPeriod = 10 * time.Millisecond

// A Driver produces a monotonically non-decreasing simulated clock.
type Driver struct {
	mu        sync.Mutex
	state     State
	mode      Mode
	speed     float64
	simTime   sim.VTimeInMs
	exactMs   float64
	listeners []TickListener
	period    time.Duration
	stop      chan struct{}
	done      chan struct{}
}

// NewDriver creates a self-paced Driver with a speed multiplier of 1.
func NewDriver() *Driver {
	return &Driver{
		mode:   SelfPaced,
		speed:  1,
		period: defaultPeriod,
	}
}

// NewExternallyDrivenDriver creates a Driver without an autonomous timer.
func NewExternallyDrivenDriver() *Driver {
	return &Driver{
		mode:   ExternallyDriven,
		speed:  1,
		period: defaultPeriod,
	}
}

// WithPeriod sets the wall-clock interval between self-paced ticks.
func (d *Driver) WithPeriod(period time.Duration) *Driver {
	d.period = period
	return d
}

// AddListener registers a listener for future ticks.
func (d *Driver) AddListener(l TickListener) {
	d.mu.Lock()
	d.listeners = append(d.listeners, l)
	d.mu.Unlock()
}

// CurrentTime returns the current simulated time.
func (d *Driver) CurrentTime() sim.VTimeInMs {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.simTime
}

// State returns the lifecycle state of the driver.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// Mode returns the time-progression mode of the driver.
func (d *Driver) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.mode
}

// Speed returns the current speed multiplier.
func (d *Driver) Speed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.speed
}

// Start moves the driver to the running state. In self-paced mode it begins
// producing ticks. Starting an already-running driver is a no-op.
func (d *Driver) Start() {
	d.mu.Lock()

	if d.state == Running {
		d.mu.Unlock()
		return
	}

	d.state = Running

	if d.mode != SelfPaced {
		d.mu.Unlock()
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop = stop
	d.done = done
	d.mu.Unlock()

	go d.run(stop, done)
}

// Pause freezes simulated time at its last value. Pausing an already-paused
// or stopped driver is a no-op.
func (d *Driver) Pause() {
	d.mu.Lock()

	if d.state != Running {
		d.mu.Unlock()
		return
	}

	d.state = Paused
	stop := d.stop
	done := d.done
	d.stop = nil
	d.done = nil
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// SetSpeed changes the rate at which self-paced ticks advance simulated time
// relative to wall time. The multiplier must be positive and finite, and the
// driver must have been started at least once.
func (d *Driver) SetSpeed(multiplier float64) error {
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return InvalidSpeedError{Multiplier: multiplier}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == Stopped {
		return InvalidSpeedError{
			Multiplier: multiplier,
			Reason:     "driver is stopped",
		}
	}

	d.speed = multiplier

	return nil
}

// Advance moves simulated time forward by the given number of milliseconds
// and notifies all listeners. Only valid in externally driven mode.
func (d *Driver) Advance(byMs float64) error {
	if byMs < 0 {
		return sim.InvalidParameterError{
			Name: "advance_ms", Value: byMs,
			Reason: "must be non-negative",
		}
	}

	d.mu.Lock()
	if d.mode != ExternallyDriven {
		d.mu.Unlock()
		return ErrNotExternallyDriven
	}

	d.simTime += sim.VTimeInMs(byMs).Round()
	now := d.simTime
	listeners := d.snapshotListeners()
	d.mu.Unlock()

	notify(listeners, now)

	return nil
}

// TickAt moves simulated time to an explicit value and notifies all
// listeners. Only valid in externally driven mode; time never moves
// backward.
func (d *Driver) TickAt(t sim.VTimeInMs) error {
	d.mu.Lock()
	if d.mode != ExternallyDriven {
		d.mu.Unlock()
		return ErrNotExternallyDriven
	}

	if t < d.simTime {
		last := d.simTime
		d.mu.Unlock()
		return sim.TimeRegressionError{Now: t, Last: last}
	}

	d.simTime = t
	listeners := d.snapshotListeners()
	d.mu.Unlock()

	notify(listeners, t)

	return nil
}

// run is the self-paced tick loop. One loop goroutine is alive per running
// period; Pause tears it down and waits for it to exit.
func (d *Driver) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			// Accumulate unrounded and round only the published tick
			// time. Rounding each increment would quantize the speed,
			// and would freeze the clock whenever period*speed stays
			// below half the time resolution.
			d.mu.Lock()
			d.exactMs += elapsed.Seconds() * 1000 * d.speed
			d.simTime = sim.VTimeInMs(d.exactMs).Round()
			simNow := d.simTime
			listeners := d.snapshotListeners()
			d.mu.Unlock()

			notify(listeners, simNow)
		}
	}
}

// snapshotListeners copies the listener set. The caller holds the lock.
func (d *Driver) snapshotListeners() []TickListener {
	listeners := make([]TickListener, len(d.listeners))
	copy(listeners, d.listeners)
	return listeners
}

func notify(listeners []TickListener, now sim.VTimeInMs) {
	for _, l := range listeners {
		l.OnTick(now)
	}
}
