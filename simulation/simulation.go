// Package simulation wires an engine, a time driver, a traffic generator,
// and the control plane into one runnable simulation instance.
package simulation

import (
	"github.com/synclab/netsim/analysis"
	"github.com/synclab/netsim/datarecording"
	"github.com/synclab/netsim/driver"
	"github.com/synclab/netsim/generator"
	"github.com/synclab/netsim/monitoring"
	"github.com/synclab/netsim/sim"
)

// A Simulation bundles the collaborators of one simulation run. All parts
// hold explicit references to each other; nothing is reachable through
// package-level state.
type Simulation struct {
	id string

	engine    *sim.Engine
	driver    *driver.Driver
	generator *generator.Generator
	analyzer  *analysis.LatencyAnalyzer
	recorder  datarecording.DataRecorder
	monitor   *monitoring.Monitor

	monitorAddr string
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the event engine of the simulation.
func (s *Simulation) Engine() *sim.Engine {
	return s.engine
}

// Driver returns the time driver of the simulation.
func (s *Simulation) Driver() *driver.Driver {
	return s.driver
}

// Generator returns the traffic generator of the simulation.
func (s *Simulation) Generator() *generator.Generator {
	return s.generator
}

// Analyzer returns the latency analyzer of the simulation.
func (s *Simulation) Analyzer() *analysis.LatencyAnalyzer {
	return s.analyzer
}

// MonitorAddr returns the address the control plane listens on, or an empty
// string when monitoring is disabled.
func (s *Simulation) MonitorAddr() string {
	return s.monitorAddr
}

// Terminate pauses the driver and closes the recorder.
func (s *Simulation) Terminate() {
	s.driver.Pause()

	if s.recorder != nil {
		s.recorder.Close()
	}
}
