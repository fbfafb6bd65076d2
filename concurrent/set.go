package concurrent

import "sync"

// Set is a mutex-guarded set.
//
// The zero value is ready to use. Set must not be copied after first use.
type Set[K comparable] struct {
	mu sync.Mutex
	m  map[K]struct{}
}

// NewSet creates an empty set with room for sizeHint members.
func NewSet[K comparable](sizeHint int) *Set[K] {
	return &Set[K]{m: make(map[K]struct{}, sizeHint)}
}

// Insert adds key. Returns true if key was not already a member.
func (s *Set[K]) Insert(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[key]; ok {
		return false
	}
	if s.m == nil {
		s.m = make(map[K]struct{})
	}
	s.m[key] = struct{}{}
	return true
}

// Contains reports whether key is a member.
func (s *Set[K]) Contains(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.m[key]
	return ok
}

// Remove deletes key. Returns true if it was a member.
func (s *Set[K]) Remove(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[key]; !ok {
		return false
	}
	delete(s.m, key)
	return true
}

// TryRemoveAny removes and returns an arbitrary member.
func (s *Set[K]) TryRemoveAny() (K, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.m {
		delete(s.m, k)
		return k, true
	}
	var zero K
	return zero, false
}

// Len returns the number of members.
func (s *Set[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.m)
}

// Clear removes every member.
func (s *Set[K]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.m)
}

// Snapshot returns the members in unspecified order.
func (s *Set[K]) Snapshot() []K {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]K, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	return out
}
