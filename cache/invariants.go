package cache

import (
	"github.com/pkg/errors"
)

// verify checks queue invariants listed on queue type.
func (q *queue[K, V]) verify() error {
	if q.fakeHead.prev != nil || q.fakeTail.next != nil {
		return errors.New("fake nodes linked outside of queue")
	}
	if q.fakeHead.owner != nil || q.fakeTail.owner != nil {
		return errors.New("fake nodes are owned")
	}
	var actualLen int
	for n := q.head(); !q.end(n); n = n.next {
		actualLen++
		if n.prev.next != n {
			return errors.Errorf("broken link before node %v", n.Key)
		}
		if n.owner != q {
			return errors.Errorf("node %v has another owner", n.Key)
		}
	}
	if q.tail().next != q.fakeTail {
		return errors.New("broken link before fake tail")
	}
	if actualLen != q.len {
		return errors.Errorf("queue len %v, but %v nodes linked", q.len, actualLen)
	}
	return nil
}

func (l *lfu[K, V]) verify() error {
	if len(l.buckets) == 0 {
		if l.minFreq != 0 {
			return errors.Errorf("no buckets, but min frequency is %v", l.minFreq)
		}
		return nil
	}
	if _, ok := l.buckets[l.minFreq]; !ok {
		return errors.Errorf("no bucket for min frequency %v", l.minFreq)
	}
	for freq, b := range l.buckets {
		if err := b.verify(); err != nil {
			return errors.Wrapf(err, "bucket %v", freq)
		}
		if b.empty() {
			return errors.Errorf("empty bucket %v", freq)
		}
		if freq < l.minFreq {
			return errors.Errorf("bucket %v is less than min frequency %v", freq, l.minFreq)
		}
		for n := b.head(); !b.end(n); n = n.next {
			if n.freq != freq {
				return errors.Errorf("node %v with frequency %v in bucket %v", n.Key, n.freq, freq)
			}
		}
	}
	return nil
}

// verify checks evictor structure, and that evictor and table refer to the same nodes.
func (c *cache[K, V]) verify() error {
	if err := c.evictor.verify(); err != nil {
		return err
	}
	nodes := c.evictor.nodes()
	for _, n := range nodes {
		tn, ok := c.table[n.Key]
		if !ok {
			return errors.Errorf("no table ref to item %v", n.Key)
		}
		if tn != n {
			return errors.Errorf("table refs to another node for key %v", n.Key)
		}
	}
	if len(nodes) != len(c.table) {
		return errors.Errorf("%v items in table, but %v in evictor", len(c.table), len(nodes))
	}
	if c.maxItems > 0 && len(c.table) > c.maxItems {
		return errors.Errorf("overflow: %v items, max %v", len(c.table), c.maxItems)
	}
	return nil
}
