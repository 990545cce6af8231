package cache

import (
	"bytes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Print", func() {
	It("empty", func() {
		buf := &bytes.Buffer{}
		Expect(Print[string, string](buf, newTestCache(LRU, 2))).To(Succeed())
		Expect(buf.String()).To(Equal("Current cache:\n"))
	})

	It("in items order", func() {
		c := newTestCache(MRU, 3)
		c.Put("A", "Hello")
		c.Put("B", "World")
		c.Put("C", "Holberton")
		c.Get("A")
		buf := &bytes.Buffer{}
		Expect(Print[string, string](buf, c)).To(Succeed())
		Expect(buf.String()).To(Equal("Current cache:\nB: World\nC: Holberton\nA: Hello\n"))
	})
})
