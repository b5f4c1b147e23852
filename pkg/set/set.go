package set

// ------------------------------------------
// Generic Set implementation (thread-unsafe)
// ------------------------------------------

// Set is a set of comparable items.
type Set[T comparable] struct {
	items map[T]struct{}
}

// New creates a new Set
func New[T comparable]() *Set[T] {
	return &Set[T]{
		items: make(map[T]struct{}),
	}
}

// Add inserts elem and reports whether it was not present before.
func (s *Set[T]) Add(elem T) bool {
	if _, ok := s.items[elem]; ok {
		return false
	}
	s.items[elem] = struct{}{}
	return true
}

// Keyed is a set of values deduplicated by a derived key. Values keep
// the order in which they were first added.
type Keyed[K comparable, V any] struct {
	keys   *Set[K]
	values []V
	key    func(V) K
}

// NewKeyed creates a set deduplicating values by key(v).
func NewKeyed[K comparable, V any](key func(V) K) *Keyed[K, V] {
	return &Keyed[K, V]{
		keys: New[K](),
		key:  key,
	}
}

// Add inserts v unless a value with the same key exists and reports
// whether it was inserted.
func (s *Keyed[K, V]) Add(v V) bool {
	if !s.keys.Add(s.key(v)) {
		return false
	}
	s.values = append(s.values, v)
	return true
}

// Values returns the values in first-seen order.
func (s *Keyed[K, V]) Values() []V {
	return append(make([]V, 0, len(s.values)), s.values...)
}
