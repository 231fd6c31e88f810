package services

import "sync"

// FingerprintSet is the process-local record of chunk fingerprints already
// persisted in the vector store. It is safe for concurrent use.
type FingerprintSet struct {
	mu     sync.RWMutex
	hashes map[string]struct{}
}

// NewFingerprintSet creates a set holding the given fingerprints.
func NewFingerprintSet(hashes ...string) *FingerprintSet {
	s := &FingerprintSet{hashes: make(map[string]struct{}, len(hashes))}
	for _, h := range hashes {
		s.hashes[h] = struct{}{}
	}
	return s
}

// Contains reports whether the fingerprint has been persisted.
func (s *FingerprintSet) Contains(hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[hash]
	return ok
}

// Add marks fingerprints as persisted. Only call after the upsert succeeded.
func (s *FingerprintSet) Add(hashes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range hashes {
		s.hashes[h] = struct{}{}
	}
}

// Reset empties the set.
func (s *FingerprintSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes = make(map[string]struct{})
}

// Len returns the number of fingerprints.
func (s *FingerprintSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hashes)
}
