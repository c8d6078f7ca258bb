package a

import "sync"

type store struct {
	mu    sync.Mutex
	nodes map[string]int
}

func (s *store) putLocked(uid string) {
	s.nodes[uid]++
	s.touchLocked(uid)
}

func (s *store) touchLocked(uid string) {
	_ = s.nodes[uid]
}

func (s *store) Put(uid string) {
	s.mu.Lock()
	s.putLocked(uid)
	s.mu.Unlock()
}

func (s *store) Get(uid string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked(uid)
	return s.nodes[uid]
}

func (s *store) Unguarded(uid string) {
	s.putLocked(uid) // want "putLocked called without holding mu"
}

func (s *store) AfterUnlock(uid string) {
	s.mu.Lock()
	s.putLocked(uid)
	s.mu.Unlock()
	s.touchLocked(uid) // want "touchLocked called without holding mu"
}

func (s *store) InClosure(uid string) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return func() {
		s.putLocked(uid)
	}
}
