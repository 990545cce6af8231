package cache

import (
	"regexp"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gbytes"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"

	"github.com/skipor/policycache/log"
	. "github.com/skipor/policycache/testutil"
)

var _ = Describe("Config", func() {
	It("non positive max items", func() {
		for _, p := range Policies() {
			if !p.Bounded() {
				continue
			}
			for _, maxItems := range []int{0, -1} {
				_, err := New[string, string](nil, Config{Policy: p, MaxItems: maxItems})
				Expect(errors.Cause(err)).To(Equal(ErrInvalidCapacity), "%v %v", p, maxItems)
			}
		}
	})
	It("basic ignores max items", func() {
		s, err := New[string, string](nil, Config{Policy: Basic, MaxItems: -1})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Cap()).To(BeZero())
	})
	It("unknown policy", func() {
		_, err := New[string, string](nil, Config{Policy: Policy(100), MaxItems: 1})
		Expect(errors.Is(err, ErrUnknownPolicy)).To(BeTrue())
	})
	It("parse policy", func() {
		for _, p := range Policies() {
			parsed, err := ParsePolicy(p.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(p))
		}
		p, err := ParsePolicy("LFU")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(LFU))
		_, err = ParsePolicy("arc")
		Expect(errors.Cause(err)).To(Equal(ErrUnknownPolicy))
	})
})

var _ = Describe("Cache", func() {
	var (
		c  *cache[string, string]
		md *MockDiscard
	)
	BeforeEach(func() {
		resetTestKeys()
		md = &MockDiscard{}
	})
	AfterEach(func() {
		c.ExpectInvariantsOk()
		md.AssertExpectations(GinkgoT())
	})
	NewCache := func(p Policy) {
		c = newTestCache(p, DefaultMaxItems)
		c.onDiscard = md.Discard
	}

	Context("scenarios", func() {
		It("basic never discards", func() {
			NewCache(Basic)
			putAll(c, "A", "B", "C", "D", "E", "F")
			Expect(storeKeys[string, string](c)).To(Equal([]string{"A", "B", "C", "D", "E", "F"}))
		})

		It("basic update keeps position", func() {
			NewCache(Basic)
			putAll(c, "A", "B", "C")
			c.Put("A", "a")
			Expect(c.Items()).To(Equal([]Entry[string, string]{{"A", "a"}, {"B", "B"}, {"C", "C"}}))
		})

		It("fifo", func() {
			NewCache(FIFO)
			putAll(c, "A", "B", "C", "D")
			c.Put("A", "a") // Update doesn't change age.
			c.Get("B")
			md.On("Discard", "A", "a").Once()
			md.ExpectDiscard("B")
			putAll(c, "E")
			c.Put("A", "A")
			Expect(storeKeys[string, string](c)).To(Equal([]string{"C", "D", "E", "A"}))
		})

		It("lifo", func() {
			NewCache(LIFO)
			putAll(c, "A", "B", "C", "D")
			md.ExpectDiscard("D")
			putAll(c, "E")
			Expect(storeKeys[string, string](c)).To(ConsistOf("A", "B", "C", "E"))
			Expect(c.Len()).To(Equal(4))
		})

		It("lifo update resets insertion age", func() {
			NewCache(LIFO)
			putAll(c, "A", "B", "C", "D", "B")
			c.Get("C") // Get is not insertion.
			md.ExpectDiscard("B")
			putAll(c, "E")
			Expect(storeKeys[string, string](c)).To(Equal([]string{"A", "C", "D", "E"}))
		})

		It("lru", func() {
			NewCache(LRU)
			putAll(c, "A", "B", "C", "D")
			c.Get("A")
			md.ExpectDiscard("B")
			putAll(c, "E")
			Expect(storeKeys[string, string](c)).To(Equal([]string{"C", "D", "A", "E"}))
		})

		It("lru put touches", func() {
			NewCache(LRU)
			putAll(c, "A", "B", "C", "D", "A")
			md.ExpectDiscard("B", "C")
			putAll(c, "E", "F")
			Expect(storeKeys[string, string](c)).To(Equal([]string{"D", "A", "E", "F"}))
		})

		It("mru", func() {
			NewCache(MRU)
			putAll(c, "A", "B", "C", "D")
			c.Get("A")
			md.ExpectDiscard("A")
			putAll(c, "E")
			Expect(storeKeys[string, string](c)).To(Equal([]string{"B", "C", "D", "E"}))
		})

		It("mru discards previous put", func() {
			NewCache(MRU)
			putAll(c, "A", "B", "C", "D")
			md.ExpectDiscard("D", "E")
			putAll(c, "E", "F")
			Expect(storeKeys[string, string](c)).To(Equal([]string{"A", "B", "C", "F"}))
		})

		It("lfu", func() {
			NewCache(LFU)
			putAll(c, "A", "B", "C", "D")
			c.Get("A")
			c.Get("A")
			md.ExpectDiscard("B")
			putAll(c, "E")
			Expect(storeKeys[string, string](c)).To(ConsistOf("A", "C", "D", "E"))
		})

		It("lfu ties broken by recency", func() {
			NewCache(LFU)
			putAll(c, "A", "B", "C", "D")
			c.Get("B")
			c.Get("A")
			c.Get("D")
			// All but C have frequency 2. C is discarded, then E with frequency 1.
			md.ExpectDiscard("C", "E")
			putAll(c, "E", "F")
			// B is least recently touched among frequency 2.
			c.Get("F")
			md.ExpectDiscard("B")
			putAll(c, "G")
			Expect(storeKeys[string, string](c)).To(Equal([]string{"G", "A", "D", "F"}))
		})
	})

	Context("contract", func() {
		for _, p := range Policies() {
			p := p
			Context(p.String(), func() {
				BeforeEach(func() { NewCache(p) })

				It("miss", func() {
					v, ok := c.Get("A")
					Expect(ok).To(BeFalse())
					Expect(v).To(BeEmpty())
					putAll(c, "B")
					_, ok = c.Get("A")
					Expect(ok).To(BeFalse())
				})

				It("get what put", func() {
					c.Put("A", "a")
					v, ok := c.Get("A")
					Expect(ok).To(BeTrue())
					Expect(v).To(Equal("a"))
				})

				It("idempotent get", func() {
					putAll(c, "A", "B", "C")
					for i := 0; i < 5; i++ {
						v, ok := c.Get("B")
						Expect(ok).To(BeTrue())
						Expect(v).To(Equal("B"))
					}
					c.Put("B", "b")
					v, _ := c.Get("B")
					Expect(v).To(Equal("b"))
				})

				It("update not insert", func() {
					putAll(c, "A", "B", "C", "D")
					before := c.Len()
					c.Put("C", "c")
					c.Put("A", "a")
					Expect(c.Len()).To(Equal(before))
				})

				It("items order deterministic", func() {
					c.onDiscard = nil
					other := newTestCache(p, DefaultMaxItems)
					for _, s := range []Store[string, string]{c, other} {
						putAll(s, "A", "B", "C", "D")
						s.Get("B")
						s.Get("A")
						putAll(s, "C", "E")
					}
					Expect(c.Items()).To(Equal(other.Items()))
				})
			})
		}
	})

	Context("discard count", func() {
		for _, p := range Policies() {
			if !p.Bounded() {
				continue
			}
			p := p
			It(p.String(), func() {
				const n = 10
				NewCache(p)
				var discarded []string
				c.onDiscard = func(key, _ string) { discarded = append(discarded, key) }
				for i := 0; i < n; i++ {
					c.Put(testKey(), "v")
					Expect(c.Len()).To(BeNumerically("<=", DefaultMaxItems))
				}
				Expect(discarded).To(HaveLen(n - DefaultMaxItems))
				for _, k := range discarded {
					_, ok := c.Get(k)
					Expect(ok).To(BeFalse())
				}
			})
		}
	})

	Context("random operations", func() {
		for _, p := range Policies() {
			p := p
			It(p.String(), func() {
				maxItems := Rand.Intn(8) + 1
				c = newTestCache(p, maxItems)
				var discards int
				c.onDiscard = func(key, _ string) {
					discards++
					Expect(c.table).NotTo(HaveKey(key))
				}
				for i, key := range RandKeys(500, 12) {
					var value string
					Fuzz(&value)
					_, resident := c.table[key]
					lenBefore := c.Len()
					discardsBefore := discards
					if i%3 == 0 {
						got, ok := c.Get(key)
						Expect(ok).To(Equal(resident))
						if ok {
							Expect(got).To(Equal(c.table[key].Value))
						}
						Expect(discards).To(Equal(discardsBefore))
						continue
					}
					c.Put(key, value)
					got, ok := c.table[key]
					Expect(ok).To(BeTrue())
					Expect(got.Value).To(Equal(value))
					if !p.Bounded() || resident || lenBefore < maxItems {
						Expect(discards).To(Equal(discardsBefore), "unexpected discard")
					} else {
						Expect(discards).To(Equal(discardsBefore+1), "expected one discard")
					}
					if p.Bounded() {
						Expect(c.Len()).To(BeNumerically("<=", maxItems))
					}
					c.ExpectInvariantsOk()
				}
			})
		}
	})
})

var _ = Describe("Absent values", func() {
	It("nil pointer value", func() {
		s, err := New[string, *int](nil, Config{Policy: LRU, MaxItems: 2})
		Expect(err).NotTo(HaveOccurred())
		x := 1
		s.Put("A", &x)
		s.Put("A", nil)
		s.Put("B", nil)
		Expect(s.Len()).To(Equal(1))
		v, ok := s.Get("A")
		Expect(ok).To(BeTrue())
		Expect(v).To(BeIdenticalTo(&x))
	})

	It("nil interface key and value", func() {
		var discarded []interface{}
		s, err := NewWithDiscard[interface{}, interface{}](nil, Config{Policy: MRU, MaxItems: 2},
			func(key, _ interface{}) { discarded = append(discarded, key) })
		Expect(err).NotTo(HaveOccurred())
		s.Put("A", 1)
		s.Put(2, "B")
		items := s.Items()
		s.Put(nil, 1)
		s.Put("C", nil)
		s.Put(nil, nil)
		Expect(s.Items()).To(Equal(items))
		Expect(discarded).To(BeEmpty())
		_, ok := s.Get(nil)
		Expect(ok).To(BeFalse())
	})

	It("empty string is not absent", func() {
		s, err := New[string, string](nil, Config{Policy: LFU, MaxItems: 1})
		Expect(err).NotTo(HaveOccurred())
		s.Put("", "")
		v, ok := s.Get("")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(""))
	})
})

var _ = Describe("Discard observation", func() {
	It("log DISCARD record", func() {
		buf := NewBuffer()
		s, err := New[string, int](log.NewLogger(log.InfoLevel, buf), Config{Policy: LRU, MaxItems: 1})
		Expect(err).NotTo(HaveOccurred())
		s.Put("A", 1)
		s.Put("B", 2)
		Expect(buf).To(Say(regexp.QuoteMeta(`INFO: {"key":"A","policy":"lru"} DISCARD: A`)))
		Expect(buf).NotTo(Say("DISCARD"))
	})

	It("metrics", func() {
		r := metrics.NewRegistry()
		s, err := New[string, int](nil, Config{Policy: LIFO, MaxItems: 2, Metrics: r})
		Expect(err).NotTo(HaveOccurred())
		s.Put("A", 1)
		s.Put("B", 2)
		s.Put("C", 3)
		s.Get("A")
		s.Get("B")
		Count := func(name string) int64 { return r.Get(name).(metrics.Counter).Count() }
		Expect(Count(PutMetric)).To(BeEquivalentTo(3))
		Expect(Count(DiscardMetric)).To(BeEquivalentTo(1))
		Expect(Count(HitMetric)).To(BeEquivalentTo(1))
		Expect(Count(MissMetric)).To(BeEquivalentTo(1))
		Expect(r.Get(ItemsMetric).(metrics.Gauge).Value()).To(BeEquivalentTo(2))
	})
})
