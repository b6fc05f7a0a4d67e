package simulation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/synclab/netsim/sim"
)

// A Scenario is a declarative description of a simulation setup: the device
// set, the network policy, and the traffic rates. Scenarios load from YAML
// files.
type Scenario struct {
	Devices []string          `yaml:"devices"`
	Network sim.NetworkConfig `yaml:"network"`

	// MessageRate and AttachmentRate are generator rates in events per
	// simulated second.
	MessageRate    float64 `yaml:"message_rate"`
	AttachmentRate float64 `yaml:"attachment_rate"`

	// Speed is the playback speed multiplier applied once the driver runs.
	// Zero means "leave the default".
	Speed float64 `yaml:"speed"`
}

// LoadScenario reads and validates a scenario from a YAML file.
func LoadScenario(path string) (Scenario, error) {
	var s Scenario

	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("scenario %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("scenario %s: %w", path, err)
	}

	return s, nil
}

// Validate reports the first problem in the scenario.
func (s Scenario) Validate() error {
	if len(s.Devices) < 2 {
		return fmt.Errorf("need at least 2 devices, have %d", len(s.Devices))
	}

	seen := make(map[string]bool)
	for _, d := range s.Devices {
		if d == "" {
			return fmt.Errorf("device names must not be empty")
		}
		if seen[d] {
			return fmt.Errorf("duplicate device %q", d)
		}
		seen[d] = true
	}

	if err := s.Network.Validate(); err != nil {
		return err
	}

	if s.MessageRate < 0 {
		return sim.InvalidParameterError{
			Name: "message_rate", Value: s.MessageRate,
			Reason: "must be non-negative",
		}
	}

	if s.AttachmentRate < 0 {
		return sim.InvalidParameterError{
			Name: "attachment_rate", Value: s.AttachmentRate,
			Reason: "must be non-negative",
		}
	}

	if s.Speed < 0 {
		return sim.InvalidParameterError{
			Name: "speed", Value: s.Speed,
			Reason: "must be positive, or zero for the default",
		}
	}

	return nil
}

// Apply configures a built simulation with the scenario: devices, network
// policy, and generator rates. Nothing is applied if validation fails. The
// speed multiplier is not applied here; it takes effect once the caller
// starts the driver.
func (s Scenario) Apply(simulation *Simulation) error {
	if err := s.Validate(); err != nil {
		return err
	}

	for _, d := range s.Devices {
		simulation.Engine().RegisterDevice(d)
	}

	if err := simulation.Engine().SetConfig(s.Network); err != nil {
		return err
	}

	if err := simulation.Generator().SetMessageRate(s.MessageRate); err != nil {
		return err
	}

	if err := simulation.Generator().SetAttachmentRate(s.AttachmentRate); err != nil {
		return err
	}

	return nil
}
