// Package generator emits synthetic message and attachment traffic into the
// simulation engine. The engine itself never generates traffic; the
// generator is the collaborator that calls SendEvent at the configured
// rates.
package generator

import (
	"fmt"
	"math"
	"sync"

	"github.com/iti/rngstream"
	"github.com/sirupsen/logrus"

	"github.com/synclab/netsim/sim"
)

// Event types the generator emits.
const (
	TypeMessage    = "message"
	TypeAttachment = "attachment"
)

// A Generator emits events between random pairs of enabled devices. It is
// driven by the time driver as a TickListener; rates are in events per
// simulated second.
type Generator struct {
	mu sync.Mutex

	engine *sim.Engine
	rng    *rngstream.RngStream

	messageRate    float64
	attachmentRate float64

	lastTime  sim.VTimeInMs
	msgCredit float64
	attCredit float64
	emitted   uint64
}

// New creates a Generator bound to an engine. Both rates start at zero.
func New(engine *sim.Engine) *Generator {
	return &Generator{
		engine: engine,
		rng:    rngstream.New("generator"),
	}
}

// MessageRate returns the current message rate in events per second.
func (g *Generator) MessageRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.messageRate
}

// AttachmentRate returns the current attachment rate in events per second.
func (g *Generator) AttachmentRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.attachmentRate
}

// SetMessageRate sets the message emission rate in events per second.
func (g *Generator) SetMessageRate(rate float64) error {
	if err := validateRate("message_rate", rate); err != nil {
		return err
	}

	g.mu.Lock()
	g.messageRate = rate
	g.mu.Unlock()

	return nil
}

// SetAttachmentRate sets the attachment emission rate in events per second.
func (g *Generator) SetAttachmentRate(rate float64) error {
	if err := validateRate("attachment_rate", rate); err != nil {
		return err
	}

	g.mu.Lock()
	g.attachmentRate = rate
	g.mu.Unlock()

	return nil
}

func validateRate(name string, rate float64) error {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 1) {
		return sim.InvalidParameterError{
			Name: name, Value: rate,
			Reason: "must be non-negative",
		}
	}

	return nil
}

// OnTick accumulates fractional event credit for the simulated time that
// passed and emits whole events once enough credit has built up.
func (g *Generator) OnTick(now sim.VTimeInMs) {
	g.mu.Lock()

	elapsed := float64(now - g.lastTime)
	if elapsed < 0 {
		// The engine was reset under us; restart the credit clock.
		elapsed = 0
	}
	g.lastTime = now

	g.msgCredit += g.messageRate * elapsed / 1000
	g.attCredit += g.attachmentRate * elapsed / 1000

	messages := int(g.msgCredit)
	attachments := int(g.attCredit)
	g.msgCredit -= float64(messages)
	g.attCredit -= float64(attachments)

	g.mu.Unlock()

	for i := 0; i < messages; i++ {
		g.emit(TypeMessage)
	}
	for i := 0; i < attachments; i++ {
		g.emit(TypeAttachment)
	}
}

// emit sends one event between a random pair of distinct enabled devices.
// Ticks with fewer than two enabled devices emit nothing.
func (g *Generator) emit(eventType string) {
	devices := g.engine.Devices()

	enabled := devices[:0:0]
	for _, d := range devices {
		if d.Enabled {
			enabled = append(enabled, d)
		}
	}

	if len(enabled) < 2 {
		return
	}

	g.mu.Lock()
	si := g.rng.RandInt(0, len(enabled)-1)
	ti := g.rng.RandInt(0, len(enabled)-2)
	g.emitted++
	seq := g.emitted
	g.mu.Unlock()

	if ti >= si {
		ti++
	}

	source := enabled[si].DeviceID
	target := enabled[ti].DeviceID
	payload := []byte(fmt.Sprintf(`{"seq":%d,"kind":%q}`, seq, eventType))

	if _, err := g.engine.SendEvent(source, target, eventType, payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"source": source,
			"target": target,
			"type":   eventType,
		}).WithError(err).Warn("generator failed to send event")
	}
}
