package cache

import "github.com/rcrowley/go-metrics"

const (
	HitMetric     = "cache.hit"
	MissMetric    = "cache.miss"
	PutMetric     = "cache.put"
	DiscardMetric = "cache.discard"
	ItemsMetric   = "cache.items"
)

type cacheMetrics struct {
	hit     metrics.Counter
	miss    metrics.Counter
	put     metrics.Counter
	discard metrics.Counter
	items   metrics.Gauge
}

// newCacheMetrics registers metrics in r, or returns nop metrics if r is nil.
// Stores sharing registry share metrics.
func newCacheMetrics(r metrics.Registry) *cacheMetrics {
	if r == nil {
		return &cacheMetrics{
			hit:     metrics.NilCounter{},
			miss:    metrics.NilCounter{},
			put:     metrics.NilCounter{},
			discard: metrics.NilCounter{},
			items:   metrics.NilGauge{},
		}
	}
	return &cacheMetrics{
		hit:     metrics.GetOrRegisterCounter(HitMetric, r),
		miss:    metrics.GetOrRegisterCounter(MissMetric, r),
		put:     metrics.GetOrRegisterCounter(PutMetric, r),
		discard: metrics.GetOrRegisterCounter(DiscardMetric, r),
		items:   metrics.GetOrRegisterGauge(ItemsMetric, r),
	}
}
