package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IDGenerator", func() {
	It("should treat re-selecting the kind in use as a no-op", func() {
		UseSequentialIDGenerator()
		UseSequentialIDGenerator()

		first := GetIDGenerator().Generate()
		second := GetIDGenerator().Generate()
		Expect(second).ToNot(Equal(first))
	})

	It("should refuse to switch generator kinds once in use", func() {
		UseSequentialIDGenerator()

		Expect(func() { UseXIDGenerator() }).To(Panic())
	})
})
