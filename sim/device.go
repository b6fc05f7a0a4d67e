package sim

// DeviceNetworkState is the simulated network state of one device.
type DeviceNetworkState struct {
	DeviceID string `json:"device_id"`

	// Enabled is false when the device neither sends nor receives. Events
	// touching a disabled device are dropped at send time.
	Enabled bool `json:"enabled"`

	// PendingCount is the number of in-flight events that source from or
	// target this device.
	PendingCount int `json:"pending_count"`
}

// A DeviceRegistry tracks per-device simulated network state. It carries no
// lock of its own; the owning engine serializes access.
type DeviceRegistry struct {
	devices map[string]*DeviceNetworkState
	order   []string
}

// NewDeviceRegistry creates an empty DeviceRegistry.
func NewDeviceRegistry() *DeviceRegistry {
	r := new(DeviceRegistry)
	r.devices = make(map[string]*DeviceNetworkState)
	return r
}

// Register adds a device in the enabled state. Registering an existing
// device is a no-op.
func (r *DeviceRegistry) Register(deviceID string) *DeviceNetworkState {
	if d, ok := r.devices[deviceID]; ok {
		return d
	}

	d := &DeviceNetworkState{DeviceID: deviceID, Enabled: true}
	r.devices[deviceID] = d
	r.order = append(r.order, deviceID)

	return d
}

// Get returns the state of a device, or an UnknownDeviceError.
func (r *DeviceRegistry) Get(deviceID string) (*DeviceNetworkState, error) {
	d, ok := r.devices[deviceID]
	if !ok {
		return nil, UnknownDeviceError{DeviceID: deviceID}
	}

	return d, nil
}

// SetEnabled flips the connectivity of a device.
func (r *DeviceRegistry) SetEnabled(deviceID string, enabled bool) error {
	d, ok := r.devices[deviceID]
	if !ok {
		return UnknownDeviceError{DeviceID: deviceID}
	}

	d.Enabled = enabled

	return nil
}

// List returns copies of all device states in registration order.
func (r *DeviceRegistry) List() []DeviceNetworkState {
	states := make([]DeviceNetworkState, 0, len(r.order))
	for _, id := range r.order {
		states = append(states, *r.devices[id])
	}

	return states
}

// Reset discards all devices.
func (r *DeviceRegistry) Reset() {
	r.devices = make(map[string]*DeviceNetworkState)
	r.order = nil
}
