package cache

import "sync"

// Synchronized returns Store that serializes all calls to s with one mutex.
// Get changes policy bookkeeping too, so there is no read lock.
func Synchronized[K comparable, V any](s Store[K, V]) Store[K, V] {
	if ss, ok := s.(*syncStore[K, V]); ok {
		return ss
	}
	return &syncStore[K, V]{store: s}
}

type syncStore[K comparable, V any] struct {
	lock  sync.Mutex
	store Store[K, V]
}

func (s *syncStore[K, V]) Put(key K, value V) {
	s.lock.Lock()
	s.store.Put(key, value)
	s.lock.Unlock()
}

func (s *syncStore[K, V]) Get(key K) (value V, ok bool) {
	s.lock.Lock()
	value, ok = s.store.Get(key)
	s.lock.Unlock()
	return
}

func (s *syncStore[K, V]) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.store.Len()
}

func (s *syncStore[K, V]) Cap() int { return s.store.Cap() }

func (s *syncStore[K, V]) Items() []Entry[K, V] {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.store.Items()
}
