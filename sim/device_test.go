package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DeviceRegistry", func() {
	var registry *DeviceRegistry

	BeforeEach(func() {
		registry = NewDeviceRegistry()
	})

	It("should register devices enabled", func() {
		d := registry.Register("alice")
		Expect(d.Enabled).To(BeTrue())
		Expect(d.PendingCount).To(Equal(0))
	})

	It("should keep state when registering twice", func() {
		registry.Register("alice")
		Expect(registry.SetEnabled("alice", false)).To(Succeed())

		d := registry.Register("alice")
		Expect(d.Enabled).To(BeFalse())
	})

	It("should report unknown devices", func() {
		_, err := registry.Get("mallory")
		Expect(err).To(MatchError(UnknownDeviceError{DeviceID: "mallory"}))

		err = registry.SetEnabled("mallory", true)
		Expect(err).To(MatchError(UnknownDeviceError{DeviceID: "mallory"}))
	})

	It("should list devices in registration order", func() {
		registry.Register("carol")
		registry.Register("alice")
		registry.Register("bob")

		states := registry.List()
		Expect(states).To(HaveLen(3))
		Expect(states[0].DeviceID).To(Equal("carol"))
		Expect(states[1].DeviceID).To(Equal("alice"))
		Expect(states[2].DeviceID).To(Equal("bob"))
	})

	It("should discard everything on reset", func() {
		registry.Register("alice")
		registry.Reset()

		Expect(registry.List()).To(BeEmpty())
		_, err := registry.Get("alice")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NetworkConfig", func() {
	It("should accept the default configuration", func() {
		Expect(DefaultNetworkConfig().Validate()).To(Succeed())
	})

	It("should reject negative latency", func() {
		cfg := DefaultNetworkConfig()
		cfg.MinLatencyMs = -1
		Expect(cfg.Validate()).ToNot(Succeed())
	})

	It("should reject inverted latency bounds", func() {
		cfg := DefaultNetworkConfig()
		cfg.MinLatencyMs = 100
		cfg.MaxLatencyMs = 10
		Expect(cfg.Validate()).ToNot(Succeed())
	})

	It("should reject probabilities outside [0,1]", func() {
		cfg := DefaultNetworkConfig()
		cfg.PacketLossRate = -0.1
		Expect(cfg.Validate()).ToNot(Succeed())

		cfg = DefaultNetworkConfig()
		cfg.DuplicationRate = 1.1
		Expect(cfg.Validate()).ToNot(Succeed())
	})
})
