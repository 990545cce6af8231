// Package cache provides fixed capacity in-memory stores with deterministic eviction.
//
// All policies share one engine: key table and intrusive doubly linked queue of nodes.
// Queue head is the least recently touched node, tail is the most recently touched one.
// Policies differ in what touches a node, and which node is discarded when new key
// doesn't fit:
// * Basic is unbounded. Nothing is discarded.
// * FIFO discards queue head. Only insertion touches.
// * LIFO discards queue tail. Put touches.
// * LRU discards queue head. Put and get touch.
// * MRU discards queue tail. Put and get touch.
// * LFU keeps queue per touch count and discards head of the least count queue.
//
// Every discard is logged at info level as "DISCARD: <key>".
// Use NewWithDiscard to observe discards programmatically.
package cache
