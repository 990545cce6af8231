package cache

import (
	"fmt"

	"github.com/skipor/policycache/internal/tag"
)

// Pre and post conditions (Invariants) for queue methods:
// * queue owns nodes between fakeHead and fakeTail.
// * {fakeHead, all owned nodes, fakeTail} are correct doubly linked list.
// * all nodes owned by queue have field node.owner equal to &queue
// * queue.len equal to number of owned nodes.
type queue[K comparable, V any] struct {
	len int

	// Fake nodes. Real nodes are between them.
	// nil <- fakeHead <-> node_0 <-> ... <-> node_(n-1) <-> fakeTail -> nil
	// Such structure prevent nil checks in code.

	// fakeHead is bottom of queue. fakeHead.next is least recently touched node.
	fakeHead *node[K, V]

	// fakeTail is top of queue. All touched nodes are moved before fakeTail.
	fakeTail *node[K, V]
}

func newQueue[K comparable, V any]() *queue[K, V] {
	q := &queue[K, V]{}
	q.init()
	return q
}

func (q *queue[K, V]) init() {
	q.fakeHead, q.fakeTail = &node[K, V]{}, &node[K, V]{}
	link(q.fakeHead, q.fakeTail)
}

// push attaches node as most recent.
func (q *queue[K, V]) push(n *node[K, V]) {
	n.owner = q
	q.len++
	attachToTail(n)
}

// remove detaches and disowns node.
func (q *queue[K, V]) remove(n *node[K, V]) {
	if tag.Debug && n.owner != q {
		panic("remove of not owned node")
	}
	n.detach()
	n.disown()
}

// moveToTail makes owned node most recent.
func (q *queue[K, V]) moveToTail(n *node[K, V]) {
	if n == q.tail() {
		return
	}
	n.detach()
	attachToTail(n)
}

func (q *queue[K, V]) head() *node[K, V] { return q.fakeHead.next }
func (q *queue[K, V]) tail() *node[K, V] { return q.fakeTail.prev }
func (q *queue[K, V]) end(n *node[K, V]) bool {
	return n == q.fakeTail
}
func (q *queue[K, V]) empty() bool { return q.len == 0 }

// appendNodes appends owned nodes from head to tail.
func (q *queue[K, V]) appendNodes(nodes []*node[K, V]) []*node[K, V] {
	for n := q.head(); !q.end(n); n = n.next {
		nodes = append(nodes, n)
	}
	return nodes
}

type node[K comparable, V any] struct {
	Entry[K, V]
	// freq is touch count since insertion. Maintained only by LFU.
	freq  uint64
	owner *queue[K, V]
	prev  *node[K, V]
	next  *node[K, V]
}

func newNode[K comparable, V any](key K, value V) *node[K, V] {
	return &node[K, V]{Entry: Entry[K, V]{Key: key, Value: value}}
}

func (n *node[K, V]) disown() {
	n.owner.len--
	n.owner = nil
}

func (n *node[K, V]) detach() {
	link(n.prev, n.next)
	if tag.Debug {
		n.prev = nil
		n.next = nil
	}
}

func link[K comparable, V any](a, b *node[K, V]) { a.next, b.prev = b, a }

func attachToTail[K comparable, V any](n *node[K, V]) {
	link(n.owner.tail(), n)
	link(n, n.owner.fakeTail)
}

func (n *node[K, V]) GoString() string {
	key := func(n *node[K, V]) interface{} {
		if n == nil {
			return nil
		}
		return n.Key
	}
	return fmt.Sprintf("{Entry:%#v, freq:%v, owner:%p, prev:%v, next:%v}",
		n.Entry, n.freq, n.owner, key(n.prev), key(n.next))
}

var _ fmt.GoStringer = (*node[string, int])(nil)
