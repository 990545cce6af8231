package cache

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// lfu keeps queue per touch frequency. Node moves to tail of next frequency queue on
// every touch, so queue order is last touch order, and head of minimal frequency queue
// is the least recently touched of the least frequently touched nodes.
// Add, touch and victim are O(1). Remove rescans frequencies only when minimal bucket
// became empty, and discard is always followed by add, which resets minimal frequency.
type lfu[K comparable, V any] struct {
	buckets map[uint64]*queue[K, V]
	// minFreq is frequency of the least frequent resident node, or 0 if there are no nodes.
	minFreq uint64
}

func newLFU[K comparable, V any]() *lfu[K, V] {
	return &lfu[K, V]{buckets: make(map[uint64]*queue[K, V])}
}

func (l *lfu[K, V]) add(n *node[K, V]) {
	n.freq = 1
	l.bucket(n.freq).push(n)
	l.minFreq = 1
}

func (l *lfu[K, V]) update(n *node[K, V]) { l.touch(n) }
func (l *lfu[K, V]) access(n *node[K, V]) { l.touch(n) }

func (l *lfu[K, V]) touch(n *node[K, V]) {
	l.detach(n)
	if l.minFreq == n.freq && l.buckets[n.freq] == nil {
		l.minFreq++
	}
	n.freq++
	l.bucket(n.freq).push(n)
}

func (l *lfu[K, V]) victim() *node[K, V] {
	b, ok := l.buckets[l.minFreq]
	if !ok {
		return nil
	}
	return b.head()
}

func (l *lfu[K, V]) remove(n *node[K, V]) {
	freq := n.freq
	l.detach(n)
	n.freq = 0
	if l.minFreq == freq && l.buckets[freq] == nil {
		l.minFreq = 0
		for f := range l.buckets {
			if l.minFreq == 0 || f < l.minFreq {
				l.minFreq = f
			}
		}
	}
}

// detach removes node from its bucket, and bucket if it became empty.
func (l *lfu[K, V]) detach(n *node[K, V]) {
	b := n.owner
	b.remove(n)
	if b.empty() {
		delete(l.buckets, n.freq)
	}
}

func (l *lfu[K, V]) bucket(freq uint64) *queue[K, V] {
	b, ok := l.buckets[freq]
	if !ok {
		b = newQueue[K, V]()
		l.buckets[freq] = b
	}
	return b
}

// nodes returns nodes ordered by frequency, and by last touch within equal frequency.
func (l *lfu[K, V]) nodes() (nodes []*node[K, V]) {
	freqs := maps.Keys(l.buckets)
	slices.Sort(freqs)
	for _, f := range freqs {
		nodes = l.buckets[f].appendNodes(nodes)
	}
	return
}
