package sim

import (
	"sync"
)

// An Engine is the core of the network simulation. It owns the in-flight
// event set, the delay/loss/duplication policy, and the device registry,
// and advances delivery state on each time tick.
//
// All engine state forms one consistency domain guarded by a single lock.
// Concurrent control operations and ticks serialize; each observes either
// the pre- or post-state of any other, never a mix.
type Engine struct {
	HookableBase

	mu      sync.Mutex
	cfg     NetworkConfig
	devices *DeviceRegistry
	pending EventQueue
	history []*NetworkEvent
	now     VTimeInMs
	ticked  bool
	rng     *rngSet
	seed    *uint64
}

// NewEngine creates an Engine with the default network configuration and an
// empty device registry. Callers own the returned instance and pass it
// explicitly to collaborators; there is no ambient shared engine.
func NewEngine() *Engine {
	e := new(Engine)
	e.cfg = DefaultNetworkConfig()
	e.devices = NewDeviceRegistry()
	e.pending = NewEventQueue()
	e.rng = newRngSet("engine")

	return e
}

// NewEngineWithSeed creates an Engine whose latency, loss, and duplication
// decisions derive from the seed alone. Two engines built with the same seed
// replay identically, regardless of what else the process constructed before
// them, and Reset rewinds the decision streams to their seeded start.
func NewEngineWithSeed(seed uint64) *Engine {
	e := NewEngine()
	e.rng = newSeededRngSet("engine", seed)
	e.seed = &seed

	return e
}

// AcceptHook registers a delivery/drop subscriber. Notifications are
// one-shot: a hook attached after an event reached its terminal state never
// sees that event.
func (e *Engine) AcceptHook(hook Hook) {
	e.mu.Lock()
	e.HookableBase.AcceptHook(hook)
	e.mu.Unlock()
}

// CurrentTime returns the last simulated time the engine observed.
func (e *Engine) CurrentTime() VTimeInMs {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.now
}

// Config returns the current network configuration.
func (e *Engine) Config() NetworkConfig {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cfg
}

// SetConfig replaces the network configuration. The change is all-or-nothing
// and applies only to events scheduled after the call.
func (e *Engine) SetConfig(cfg NetworkConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	return nil
}

// RegisterDevice adds a device to the registry in the enabled state.
func (e *Engine) RegisterDevice(deviceID string) DeviceNetworkState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return *e.devices.Register(deviceID)
}

// Device returns the state of one device.
func (e *Engine) Device(deviceID string) (DeviceNetworkState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.devices.Get(deviceID)
	if err != nil {
		return DeviceNetworkState{}, err
	}

	return *d, nil
}

// Devices returns all device states in registration order.
func (e *Engine) Devices() []DeviceNetworkState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.devices.List()
}

// SetDeviceEnabled flips the connectivity of a device. Disabling does not
// cancel events already in flight unless DropPendingOnDisable is set, in
// which case pending events touching the device are dropped immediately,
// with drop notifications.
func (e *Engine) SetDeviceEnabled(
	deviceID string,
	enabled bool,
) (DeviceNetworkState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.devices.Get(deviceID)
	if err != nil {
		return DeviceNetworkState{}, err
	}

	d.Enabled = enabled

	if !enabled && e.cfg.DropPendingOnDisable {
		e.dropPendingTouching(deviceID)
	}

	return *d, nil
}

func (e *Engine) dropPendingTouching(deviceID string) {
	kept := NewEventQueue()

	for e.pending.Len() > 0 {
		evt := e.pending.Pop()
		if evt.Source != deviceID && evt.Target != deviceID {
			kept.Push(evt)
			continue
		}

		e.terminalize(evt, EventDropped)
	}

	e.pending = kept
}

// SendEvent schedules an event from source to target. The delivery time is
// the current simulated time plus a uniform draw within the configured
// latency bounds. Events touching a disabled device are dropped right here,
// without consuming a latency draw.
func (e *Engine) SendEvent(
	source, target, eventType string,
	payload []byte,
) (*NetworkEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	src, err := e.devices.Get(source)
	if err != nil {
		return nil, err
	}

	tgt, err := e.devices.Get(target)
	if err != nil {
		return nil, err
	}

	evt := &NetworkEvent{
		ID:        GetIDGenerator().Generate(),
		Source:    source,
		Target:    target,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: e.now,
		Status:    EventPending,
	}
	e.history = append(e.history, evt)

	if !src.Enabled || !tgt.Enabled {
		evt.DeliverAt = e.now
		evt.Status = EventDropped
		e.InvokeHook(HookCtx{
			Domain: e,
			Pos:    HookPosEventDropped,
			Now:    e.now,
			Item:   evt,
		})

		return evt, nil
	}

	delay := e.rng.drawLatency(e.cfg.MinLatencyMs, e.cfg.MaxLatencyMs)
	evt.DeliverAt = e.now + delay

	e.pending.Push(evt)
	src.PendingCount++
	tgt.PendingCount++

	return evt, nil
}

// Tick advances the engine to the given simulated time and settles every
// pending event that is due. By the time Tick returns, each due event has a
// terminal state and all notifications for this tick have been dispatched.
// Calling Tick twice with the same time is harmless.
func (e *Engine) Tick(now VTimeInMs) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ticked && now < e.now {
		return TimeRegressionError{Now: now, Last: e.now}
	}

	e.now = now
	e.ticked = true

	for e.pending.Len() > 0 && e.pending.Peek().DeliverAt <= now {
		evt := e.pending.Pop()
		e.settle(evt, now)
	}

	return nil
}

// settle applies the loss and duplication policy to one due event. The
// caller holds the engine lock.
func (e *Engine) settle(evt *NetworkEvent, now VTimeInMs) {
	if e.rng.drawLoss(e.cfg.PacketLossRate) {
		e.terminalize(evt, EventDropped)
		return
	}

	e.terminalize(evt, EventDelivered)

	if !e.rng.drawDuplication(e.cfg.DuplicationRate) {
		return
	}

	// A duplicate is delivered on the spot and is not itself subject to
	// further loss or duplication.
	dup := &NetworkEvent{
		ID:        GetIDGenerator().Generate(),
		Source:    evt.Source,
		Target:    evt.Target,
		Type:      evt.Type,
		Payload:   evt.Payload,
		CreatedAt: now,
		DeliverAt: now,
		Status:    EventDelivered,
		Duplicate: true,
	}
	e.history = append(e.history, dup)

	e.InvokeHook(HookCtx{
		Domain: e,
		Pos:    HookPosEventDelivered,
		Now:    now,
		Item:   dup,
	})
}

// terminalize moves a pending event to its terminal state, updates the
// per-device pending counts, and dispatches the notification. The caller
// holds the engine lock.
func (e *Engine) terminalize(evt *NetworkEvent, status EventStatus) {
	evt.Status = status

	if src, err := e.devices.Get(evt.Source); err == nil {
		src.PendingCount--
	}
	if tgt, err := e.devices.Get(evt.Target); err == nil {
		tgt.PendingCount--
	}

	pos := HookPosEventDelivered
	if status == EventDropped {
		pos = HookPosEventDropped
	}

	e.InvokeHook(HookCtx{
		Domain: e,
		Pos:    pos,
		Now:    e.now,
		Item:   evt,
	})
}

// PendingCount returns the number of in-flight events.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pending.Len()
}

// History returns a snapshot of every event the engine has seen this run, in
// creation order. Intended for introspection; the returned slice is a copy.
func (e *Engine) History() []NetworkEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	events := make([]NetworkEvent, 0, len(e.history))
	for _, evt := range e.history {
		events = append(events, *evt)
	}

	return events
}

// Reset discards all pending, delivered, and dropped events, clears the
// device registry, and moves simulated time back to zero. Pending events are
// discarded without a status transition and without notifications. Reset
// never interleaves with a tick: whichever takes the lock second observes
// the full effect of the first.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = NewEventQueue()
	e.history = nil
	e.devices.Reset()
	e.now = 0
	e.ticked = false

	if e.seed != nil {
		e.rng = newSeededRngSet("engine", *e.seed)
	}
}
