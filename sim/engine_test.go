package sim

import (
	"fmt"
	"sync"

	gomock "go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// eventCollector records notifications in dispatch order.
type eventCollector struct {
	delivered []*NetworkEvent
	dropped   []*NetworkEvent
	order     []string
}

func (c *eventCollector) Func(ctx HookCtx) {
	evt := ctx.Item.(*NetworkEvent)

	switch ctx.Pos {
	case HookPosEventDelivered:
		c.delivered = append(c.delivered, evt)
	case HookPosEventDropped:
		c.dropped = append(c.dropped, evt)
	}

	c.order = append(c.order, evt.ID)
}

func fixedLatencyConfig(ms float64) NetworkConfig {
	return NetworkConfig{MinLatencyMs: ms, MaxLatencyMs: ms}
}

var _ = Describe("Engine", func() {
	var (
		mockCtrl  *gomock.Controller
		engine    *Engine
		collector *eventCollector
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewEngine()
		collector = &eventCollector{}
		engine.AcceptHook(collector)

		engine.RegisterDevice("alice")
		engine.RegisterDevice("bob")
		Expect(engine.SetConfig(fixedLatencyConfig(100))).To(Succeed())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should reject events for unknown devices", func() {
		_, err := engine.SendEvent("alice", "mallory", "message", nil)
		Expect(err).To(MatchError(UnknownDeviceError{DeviceID: "mallory"}))

		_, err = engine.SendEvent("mallory", "bob", "message", nil)
		Expect(err).To(MatchError(UnknownDeviceError{DeviceID: "mallory"}))
	})

	It("should deliver exactly at createdAt+d for fixed latency", func() {
		evt, err := engine.SendEvent(
			"alice", "bob", "message", []byte(`{"text":"hi"}`))
		Expect(err).ToNot(HaveOccurred())
		Expect(evt.DeliverAt).To(Equal(VTimeInMs(100)))
		Expect(evt.Status).To(Equal(EventPending))

		Expect(engine.Tick(50)).To(Succeed())
		Expect(collector.delivered).To(BeEmpty())

		Expect(engine.Tick(100)).To(Succeed())
		Expect(collector.delivered).To(HaveLen(1))
		Expect(collector.dropped).To(BeEmpty())
		Expect(collector.delivered[0].Payload).To(
			Equal([]byte(`{"text":"hi"}`)))
		Expect(collector.delivered[0].Status).To(Equal(EventDelivered))
	})

	It("should notify a subscribed hook once per delivery", func() {
		hook := NewMockHook(mockCtrl)
		engine.AcceptHook(hook)
		hook.EXPECT().Func(gomock.Any()).Times(1)

		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.Tick(100)).To(Succeed())
		Expect(engine.Tick(100)).To(Succeed())
	})

	It("should not replay notifications for late subscribers", func() {
		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(engine.Tick(100)).To(Succeed())

		late := &eventCollector{}
		engine.AcceptHook(late)

		Expect(late.delivered).To(BeEmpty())
		Expect(late.dropped).To(BeEmpty())
	})

	It("should drop everything when packet loss rate is 1", func() {
		cfg := fixedLatencyConfig(100)
		cfg.PacketLossRate = 1
		Expect(engine.SetConfig(cfg)).To(Succeed())

		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.Tick(100)).To(Succeed())
		Expect(collector.dropped).To(HaveLen(1))
		Expect(collector.delivered).To(BeEmpty())
	})

	It("should drop nothing when packet loss rate is 0", func() {
		for i := 0; i < 50; i++ {
			_, err := engine.SendEvent("alice", "bob", "message", nil)
			Expect(err).ToNot(HaveOccurred())
		}

		Expect(engine.Tick(100)).To(Succeed())
		Expect(collector.delivered).To(HaveLen(50))
		Expect(collector.dropped).To(BeEmpty())
	})

	It("should duplicate every delivery exactly once when rate is 1", func() {
		cfg := fixedLatencyConfig(10)
		cfg.DuplicationRate = 1
		Expect(engine.SetConfig(cfg)).To(Succeed())

		orig, err := engine.SendEvent(
			"alice", "bob", "message", []byte("payload"))
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.Tick(10)).To(Succeed())
		Expect(collector.delivered).To(HaveLen(2))

		dup := collector.delivered[1]
		Expect(dup.Duplicate).To(BeTrue())
		Expect(dup.ID).ToNot(Equal(orig.ID))
		Expect(dup.Payload).To(Equal(orig.Payload))
		Expect(dup.DeliverAt).To(Equal(VTimeInMs(10)))

		// The duplicate must not spawn further duplicates.
		Expect(engine.Tick(20)).To(Succeed())
		Expect(collector.delivered).To(HaveLen(2))
	})

	It("should not duplicate dropped events", func() {
		cfg := fixedLatencyConfig(10)
		cfg.PacketLossRate = 1
		cfg.DuplicationRate = 1
		Expect(engine.SetConfig(cfg)).To(Succeed())

		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.Tick(10)).To(Succeed())
		Expect(collector.dropped).To(HaveLen(1))
		Expect(collector.delivered).To(BeEmpty())
	})

	It("should deliver on the same tick with zero latency bounds", func() {
		Expect(engine.SetConfig(fixedLatencyConfig(0))).To(Succeed())

		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.Tick(0)).To(Succeed())
		Expect(collector.delivered).To(HaveLen(1))
	})

	It("should drop events touching a disabled device at send time", func() {
		_, err := engine.SetDeviceEnabled("bob", false)
		Expect(err).ToNot(HaveOccurred())

		evt, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(evt.Status).To(Equal(EventDropped))
		Expect(collector.dropped).To(HaveLen(1))
		Expect(engine.PendingCount()).To(Equal(0))

		// Re-enabling must not revive the dropped event.
		_, err = engine.SetDeviceEnabled("bob", true)
		Expect(err).ToNot(HaveOccurred())
		Expect(engine.Tick(1000)).To(Succeed())
		Expect(collector.delivered).To(BeEmpty())
	})

	It("should keep pending events when a device is disabled", func() {
		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())

		_, err = engine.SetDeviceEnabled("bob", false)
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.Tick(100)).To(Succeed())
		Expect(collector.delivered).To(HaveLen(1))
	})

	It("should cancel pending events on disable when configured so", func() {
		cfg := fixedLatencyConfig(100)
		cfg.DropPendingOnDisable = true
		Expect(engine.SetConfig(cfg)).To(Succeed())

		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(engine.PendingCount()).To(Equal(1))

		_, err = engine.SetDeviceEnabled("bob", false)
		Expect(err).ToNot(HaveOccurred())
		Expect(collector.dropped).To(HaveLen(1))
		Expect(engine.PendingCount()).To(Equal(0))

		Expect(engine.Tick(100)).To(Succeed())
		Expect(collector.delivered).To(BeEmpty())
	})

	It("should deliver when due, not in send order", func() {
		Expect(engine.SetConfig(fixedLatencyConfig(200))).To(Succeed())
		a, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.SetConfig(fixedLatencyConfig(50))).To(Succeed())
		b, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.Tick(50)).To(Succeed())
		Expect(engine.Tick(200)).To(Succeed())

		Expect(collector.order).To(Equal([]string{b.ID, a.ID}))
	})

	It("should keep the original deliverAt across config changes", func() {
		evt, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(evt.DeliverAt).To(Equal(VTimeInMs(100)))

		Expect(engine.SetConfig(fixedLatencyConfig(5))).To(Succeed())

		Expect(engine.Tick(5)).To(Succeed())
		Expect(collector.delivered).To(BeEmpty())

		Expect(engine.Tick(100)).To(Succeed())
		Expect(collector.delivered).To(HaveLen(1))
	})

	It("should reject time regression", func() {
		Expect(engine.Tick(100)).To(Succeed())

		err := engine.Tick(50)
		Expect(err).To(MatchError(TimeRegressionError{Now: 50, Last: 100}))
	})

	It("should still process the backlog after a bad tick", func() {
		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(engine.Tick(60)).To(Succeed())
		Expect(engine.Tick(10)).ToNot(Succeed())

		Expect(engine.Tick(100)).To(Succeed())
		Expect(collector.delivered).To(HaveLen(1))
	})

	It("should produce nothing after reset followed by tick(0)", func() {
		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(engine.Tick(40)).To(Succeed())

		engine.Reset()

		before := len(collector.order)
		Expect(engine.Tick(0)).To(Succeed())
		Expect(collector.order).To(HaveLen(before))
		Expect(engine.CurrentTime()).To(Equal(VTimeInMs(0)))
		Expect(engine.Devices()).To(BeEmpty())
		Expect(engine.History()).To(BeEmpty())
	})

	It("should accept earlier times after a reset", func() {
		Expect(engine.Tick(500)).To(Succeed())
		engine.Reset()
		Expect(engine.Tick(10)).To(Succeed())
	})

	It("should track per-device pending counts", func() {
		_, err := engine.SendEvent("alice", "bob", "message", nil)
		Expect(err).ToNot(HaveOccurred())

		alice, err := engine.Device("alice")
		Expect(err).ToNot(HaveOccurred())
		Expect(alice.PendingCount).To(Equal(1))

		Expect(engine.Tick(100)).To(Succeed())

		alice, err = engine.Device("alice")
		Expect(err).ToNot(HaveOccurred())
		Expect(alice.PendingCount).To(Equal(0))
	})

	It("should reject out-of-domain configurations atomically", func() {
		good := engine.Config()

		bad := good
		bad.PacketLossRate = 1.5
		Expect(engine.SetConfig(bad)).ToNot(Succeed())

		bad = good
		bad.MinLatencyMs = 50
		bad.MaxLatencyMs = 20
		Expect(engine.SetConfig(bad)).ToNot(Succeed())

		Expect(engine.Config()).To(Equal(good))
	})

	It("should serialize concurrent control operations and ticks", func() {
		var wg sync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					switch n % 4 {
					case 0:
						_, _ = engine.SendEvent("alice", "bob", "message", nil)
					case 1:
						_, _ = engine.SetDeviceEnabled("bob", j%2 == 0)
					case 2:
						_ = engine.SetConfig(fixedLatencyConfig(float64(j)))
					case 3:
						engine.RegisterDevice(fmt.Sprintf("dev%d", j))
					}
				}
			}(i)
		}

		wg.Wait()
	})
})

var _ = Describe("Seeded engine", func() {
	randomizedConfig := NetworkConfig{
		MinLatencyMs:    20,
		MaxLatencyMs:    200,
		PacketLossRate:  0.3,
		DuplicationRate: 0.2,
	}

	runScript := func(engine *Engine) []NetworkEvent {
		engine.RegisterDevice("alice")
		engine.RegisterDevice("bob")
		Expect(engine.SetConfig(randomizedConfig)).To(Succeed())

		for i := 0; i < 40; i++ {
			_, err := engine.SendEvent("alice", "bob", "message", nil)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(engine.Tick(10000)).To(Succeed())

		return engine.History()
	}

	outcomes := func(history []NetworkEvent) []string {
		var out []string
		for _, evt := range history {
			out = append(out, fmt.Sprintf(
				"%s@%v:%v", evt.Status, evt.DeliverAt, evt.Duplicate))
		}
		return out
	}

	It("should make identical decisions for the same seed", func() {
		first := runScript(NewEngineWithSeed(42))
		second := runScript(NewEngineWithSeed(42))

		Expect(outcomes(second)).To(Equal(outcomes(first)))
	})

	It("should diverge for different seeds", func() {
		first := runScript(NewEngineWithSeed(42))
		second := runScript(NewEngineWithSeed(43))

		Expect(outcomes(second)).ToNot(Equal(outcomes(first)))
	})

	It("should replay the same run after a reset", func() {
		engine := NewEngineWithSeed(7)

		first := runScript(engine)
		engine.Reset()
		second := runScript(engine)

		Expect(outcomes(second)).To(Equal(outcomes(first)))
	})
})
