package sim

// NetworkConfig holds the delay, loss, and duplication policy of one engine
// instance. A configuration change applies to events scheduled after the
// change; events already in flight keep their original delivery time.
type NetworkConfig struct {
	// MinLatencyMs and MaxLatencyMs bound the per-event delay. The delay is
	// drawn uniformly in [MinLatencyMs, MaxLatencyMs]. Uniform-in-range is
	// the documented default distribution.
	MinLatencyMs float64 `json:"min_latency_ms" yaml:"min_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms" yaml:"max_latency_ms"`

	// PacketLossRate is the probability that a due event is dropped instead
	// of delivered.
	PacketLossRate float64 `json:"packet_loss_rate" yaml:"packet_loss_rate"`

	// DuplicationRate is the probability that a delivered event is also
	// redelivered as a duplicate with a new ID and identical payload.
	DuplicationRate float64 `json:"duplication_rate" yaml:"duplication_rate"`

	// DropPendingOnDisable selects what disabling a device does to events
	// already in flight. When false, only new activity is blocked. When
	// true, pending events touching the device are dropped at disable time.
	DropPendingOnDisable bool `json:"drop_pending_on_disable" yaml:"drop_pending_on_disable"`
}

// DefaultNetworkConfig returns the configuration an engine starts with.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		MinLatencyMs: 20,
		MaxLatencyMs: 200,
	}
}

// Validate reports the first out-of-domain field.
func (c NetworkConfig) Validate() error {
	if c.MinLatencyMs < 0 {
		return InvalidParameterError{
			Name: "min_latency_ms", Value: c.MinLatencyMs,
			Reason: "must be non-negative",
		}
	}

	if c.MaxLatencyMs < c.MinLatencyMs {
		return InvalidParameterError{
			Name: "max_latency_ms", Value: c.MaxLatencyMs,
			Reason: "must be at least min_latency_ms",
		}
	}

	if c.PacketLossRate < 0 || c.PacketLossRate > 1 {
		return InvalidParameterError{
			Name: "packet_loss_rate", Value: c.PacketLossRate,
			Reason: "must be in [0, 1]",
		}
	}

	if c.DuplicationRate < 0 || c.DuplicationRate > 1 {
		return InvalidParameterError{
			Name: "duplication_rate", Value: c.DuplicationRate,
			Reason: "must be in [0, 1]",
		}
	}

	return nil
}
