package testutil

import "sync"

// SeedSequence hands out run seeds start, start+1, ... for tests that run
// several seeds and must be reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SeedSequence struct {
	mu    sync.Mutex
	start int64
	next  int64
}

// NewSeedSequence creates a sequence whose first seed is start.
func NewSeedSequence(start int64) *SeedSequence {
	return &SeedSequence{start: start, next: start}
}

// Next returns the next seed.
func (s *SeedSequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seed := s.next
	s.next++
	return seed
}

// Take returns the next n seeds.
func (s *SeedSequence) Take(n int) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, n)
	for i := range out {
		out[i] = s.next
		s.next++
	}
	return out
}

// Reset rewinds to the first seed.
func (s *SeedSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = s.start
}
