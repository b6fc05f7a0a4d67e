package simulation

import (
	"github.com/rs/xid"

	"github.com/synclab/netsim/analysis"
	"github.com/synclab/netsim/datarecording"
	"github.com/synclab/netsim/driver"
	"github.com/synclab/netsim/generator"
	"github.com/synclab/netsim/monitoring"
	"github.com/synclab/netsim/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	externallyDriven bool
	monitorOn        bool
	monitorPort      int
	recordingOn      bool
	outputFileName   string
	xidEventIDs      bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: true,
	}
}

// WithExternallyDrivenTime sets the simulation to advance time only on
// explicit calls, for deterministic runs.
func (b Builder) WithExternallyDrivenTime() Builder {
	b.externallyDriven = true
	return b
}

// WithoutMonitoring sets the simulation to not serve the control-plane API.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the control-plane server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithRecording enables the SQLite event log.
func (b Builder) WithRecording() Builder {
	b.recordingOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the event log.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithXIDEventIDs labels events with globally unique xid strings instead of
// the deterministic sequential default. The choice is process-wide and must
// be consistent across all simulations built in one process.
func (b Builder) WithXIDEventIDs() Builder {
	b.xidEventIDs = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	if b.xidEventIDs {
		sim.UseXIDGenerator()
	} else {
		sim.UseSequentialIDGenerator()
	}

	s := &Simulation{}
	s.id = xid.New().String()

	s.engine = sim.NewEngine()

	s.driver = driver.NewDriver()
	if b.externallyDriven {
		s.driver = driver.NewExternallyDrivenDriver()
	}
	s.driver.AddListener(driver.NewEngineTicker(s.engine))

	s.generator = generator.New(s.engine)
	s.driver.AddListener(s.generator)

	s.analyzer = analysis.NewLatencyAnalyzer()
	s.engine.AcceptHook(s.analyzer)

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "netsim_run_" + s.id
		}
		s.recorder = datarecording.New(outputPath)
		s.engine.AcceptHook(datarecording.NewEventLogger(s.recorder))
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitor.RegisterDriver(s.driver)
		s.monitor.RegisterGenerator(s.generator)
		s.monitor.RegisterAnalyzer(s.analyzer)
		s.monitorAddr = s.monitor.StartServer()
	}

	return s
}
