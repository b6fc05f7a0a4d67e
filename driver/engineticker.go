package driver

import (
	"log"

	"github.com/synclab/netsim/sim"
)

// EngineTicker adapts an engine to the TickListener interface, so that the
// driver can feed it simulated time.
type EngineTicker struct {
	engine *sim.Engine
}

// NewEngineTicker creates a ticker for the given engine.
func NewEngineTicker(engine *sim.Engine) *EngineTicker {
	return &EngineTicker{engine: engine}
}

// OnTick forwards the tick to the engine. The driver clock never moves
// backward and a freshly reset engine accepts any time, so a failure here
// means the engine was ticked out of band.
func (t *EngineTicker) OnTick(now sim.VTimeInMs) {
	if err := t.engine.Tick(now); err != nil {
		log.Panic(err)
	}
}
