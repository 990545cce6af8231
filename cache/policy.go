package cache

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Policy chooses which entry is discarded, when new key doesn't fit in store.
type Policy uint8

const (
	// Basic store is unbounded and never discards.
	Basic Policy = iota
	// FIFO discards the oldest inserted entry. Updates keep entry position.
	FIFO
	// LIFO discards the last inserted or updated entry.
	LIFO
	// LRU discards the least recently put or got entry.
	LRU
	// MRU discards the most recently put or got entry.
	MRU
	// LFU discards the least frequently put or got entry.
	// Among equally frequent entries the least recently touched one is discarded.
	LFU
	policiesNum = iota
)

var policyNames = [policiesNum]string{
	Basic: "basic",
	FIFO:  "fifo",
	LIFO:  "lifo",
	LRU:   "lru",
	MRU:   "mru",
	LFU:   "lfu",
}

// Policies returns all known policies.
func Policies() []Policy {
	ps := make([]Policy, policiesNum)
	for i := range ps {
		ps[i] = Policy(i)
	}
	return ps
}

func (p Policy) String() string {
	if p < policiesNum {
		return policyNames[p]
	}
	return "policy(" + strconv.Itoa(int(p)) + ")"
}

func (p Policy) Bounded() bool { return p != Basic }

// ParsePolicy parses policy name. Case is ignored.
func ParsePolicy(s string) (Policy, error) {
	for i, name := range policyNames {
		if strings.EqualFold(s, name) {
			return Policy(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownPolicy, "%q", s)
}

// evictor maintains policy bookkeeping of resident nodes.
// Cache owns key table and calls evictor for every node state change.
type evictor[K comparable, V any] interface {
	// add attaches new node.
	add(n *node[K, V])
	// update is called on put of resident key.
	update(n *node[K, V])
	// access is called on get of resident key.
	access(n *node[K, V])
	// victim returns node to discard, or nil if policy never discards.
	victim() *node[K, V]
	// remove detaches node.
	remove(n *node[K, V])
	// nodes returns resident nodes in policy order.
	nodes() []*node[K, V]
	// verify returns first broken invariant of evictor structure.
	verify() error
}

func newEvictor[K comparable, V any](p Policy) (evictor[K, V], error) {
	switch p {
	case Basic:
		return newRecency[K, V](victimNone, false, false), nil
	case FIFO:
		return newRecency[K, V](victimHead, false, false), nil
	case LIFO:
		return newRecency[K, V](victimTail, true, false), nil
	case LRU:
		return newRecency[K, V](victimHead, true, true), nil
	case MRU:
		return newRecency[K, V](victimTail, true, true), nil
	case LFU:
		return newLFU[K, V](), nil
	}
	return nil, errors.Wrapf(ErrUnknownPolicy, "%v", p)
}

type victimEnd uint8

const (
	victimNone victimEnd = iota
	victimHead
	victimTail
)

// recency keeps nodes in one queue. Head is the least recently touched node,
// tail is the most recently touched one. What is touch, and which end is discarded,
// depends on policy.
type recency[K comparable, V any] struct {
	queue[K, V]
	victimEnd     victimEnd
	touchOnUpdate bool
	touchOnAccess bool
}

func newRecency[K comparable, V any](end victimEnd, touchOnUpdate, touchOnAccess bool) *recency[K, V] {
	r := &recency[K, V]{
		victimEnd:     end,
		touchOnUpdate: touchOnUpdate,
		touchOnAccess: touchOnAccess,
	}
	r.init()
	return r
}

func (r *recency[K, V]) add(n *node[K, V]) { r.push(n) }

func (r *recency[K, V]) update(n *node[K, V]) {
	if r.touchOnUpdate {
		r.moveToTail(n)
	}
}

func (r *recency[K, V]) access(n *node[K, V]) {
	if r.touchOnAccess {
		r.moveToTail(n)
	}
}

func (r *recency[K, V]) victim() *node[K, V] {
	if r.empty() {
		return nil
	}
	switch r.victimEnd {
	case victimHead:
		return r.head()
	case victimTail:
		return r.tail()
	}
	return nil
}

func (r *recency[K, V]) nodes() []*node[K, V] {
	return r.appendNodes(make([]*node[K, V], 0, r.len))
}
