package cache

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"

	"github.com/skipor/policycache/internal/util"
	"github.com/skipor/policycache/log"
)

// DefaultMaxItems is capacity used when nothing else configured.
const DefaultMaxItems = 4

var (
	ErrInvalidCapacity = errors.New("max items should be positive")
	ErrUnknownPolicy   = errors.New("unknown policy")
)

// Store is bounded key value storage, that evicts entries according to its policy.
// Store implementations returned by New are not safe for concurrent use.
// Wrap them by Synchronized if needed.
//
// Nil keys and values are treated as absent: Put of them is a no-op,
// and Get of nil key always misses.
type Store[K comparable, V any] interface {
	// Put creates or updates entry. If new key doesn't fit, one entry is discarded before insert.
	Put(key K, value V)
	// Get returns value and true for resident key, zero value and false otherwise.
	Get(key K) (value V, ok bool)
	// Len returns number of resident entries.
	Len() int
	// Cap returns max number of resident entries, or 0 if store is unbounded.
	Cap() int
	// Items returns resident entries in policy specific, deterministic order.
	Items() []Entry[K, V]
}

type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// DiscardFunc is called for every entry evicted from store.
type DiscardFunc[K comparable, V any] func(key K, value V)

type Config struct {
	Policy Policy
	// MaxItems is ignored by Basic policy.
	MaxItems int
	// Metrics is optional registry where store counters will be registered.
	Metrics metrics.Registry
}

func New[K comparable, V any](l log.Logger, conf Config) (Store[K, V], error) {
	return NewWithDiscard[K, V](l, conf, nil)
}

// NewWithDiscard creates store that calls onDiscard for every evicted entry.
func NewWithDiscard[K comparable, V any](l log.Logger, conf Config, onDiscard DiscardFunc[K, V]) (Store[K, V], error) {
	c, err := newCache[K, V](l, conf, onDiscard)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newCache[K comparable, V any](l log.Logger, conf Config, onDiscard DiscardFunc[K, V]) (*cache[K, V], error) {
	if l == nil {
		l = log.NewNop()
	}
	ev, err := newEvictor[K, V](conf.Policy)
	if err != nil {
		return nil, err
	}
	if conf.Policy.Bounded() && conf.MaxItems <= 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "max items %v", conf.MaxItems)
	}
	if !conf.Policy.Bounded() {
		conf.MaxItems = 0
	}
	c := &cache[K, V]{
		policy:        conf.Policy,
		maxItems:      conf.MaxItems,
		table:         make(map[K]*node[K, V], conf.MaxItems),
		evictor:       ev,
		onDiscard:     onDiscard,
		log:           l.WithFields(log.Fields{"policy": conf.Policy.String()}),
		metrics:       newCacheMetrics(conf.Metrics),
		keyNillable:   nillable(reflect.TypeOf((*K)(nil)).Elem()),
		valueNillable: nillable(reflect.TypeOf((*V)(nil)).Elem()),
	}
	return c, nil
}

type cache[K comparable, V any] struct {
	policy    Policy
	maxItems  int
	table     map[K]*node[K, V]
	evictor   evictor[K, V]
	onDiscard DiscardFunc[K, V]
	log       log.Logger
	metrics   *cacheMetrics

	keyNillable   bool
	valueNillable bool
}

var _ Store[string, int] = (*cache[string, int])(nil)

func (c *cache[K, V]) Put(key K, value V) {
	if c.absentKey(key) || c.absentValue(value) {
		c.log.Debug("Skip put of nil key or value.")
		return
	}
	defer c.checkInvariants()
	c.metrics.put.Inc(1)
	if n, ok := c.table[key]; ok {
		c.log.Debugf("Update item %v.", key)
		n.Value = value
		c.evictor.update(n)
		return
	}
	if c.full() {
		c.discard()
	}
	c.log.Debugf("Add item %v.", key)
	n := newNode(key, value)
	c.table[key] = n
	c.evictor.add(n)
	c.metrics.items.Update(int64(len(c.table)))
}

func (c *cache[K, V]) Get(key K) (value V, ok bool) {
	if c.absentKey(key) {
		return
	}
	n, ok := c.table[key]
	if !ok {
		c.metrics.miss.Inc(1)
		return
	}
	defer c.checkInvariants()
	c.metrics.hit.Inc(1)
	c.evictor.access(n)
	return n.Value, true
}

func (c *cache[K, V]) Len() int { return len(c.table) }
func (c *cache[K, V]) Cap() int { return c.maxItems }

func (c *cache[K, V]) Items() []Entry[K, V] {
	nodes := c.evictor.nodes()
	items := make([]Entry[K, V], len(nodes))
	for i, n := range nodes {
		items[i] = n.Entry
	}
	return items
}

// discard evicts victim chosen by policy.
func (c *cache[K, V]) discard() {
	n := c.evictor.victim()
	if n == nil {
		c.log.Panic("No victim in full cache. Should not happen.")
	}
	c.evictor.remove(n)
	delete(c.table, n.Key)
	if c.onDiscard != nil {
		c.onDiscard(n.Key, n.Value)
	}
	c.log.WithFields(log.Fields{"key": n.Key}).Infof("DISCARD: %v", n.Key)
	c.metrics.discard.Inc(1)
}

func (c *cache[K, V]) full() bool {
	return c.maxItems > 0 && len(c.table) >= c.maxItems
}

func (c *cache[K, V]) absentKey(key K) bool {
	return c.keyNillable && util.IsNil(key)
}

func (c *cache[K, V]) absentValue(value V) bool {
	return c.valueNillable && util.IsNil(value)
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return true
	}
	return false
}
