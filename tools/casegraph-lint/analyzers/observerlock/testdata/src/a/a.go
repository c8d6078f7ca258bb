package a

import "sync"

type observer interface {
	Changed(uid string)
}

type propagator interface {
	Propagate(uid string)
}

type store struct {
	mu         sync.Mutex
	nodes      map[string]int
	observer   observer
	propagator propagator
}

func (s *store) Good(uid string) {
	s.mu.Lock()
	s.nodes[uid]++
	s.mu.Unlock()

	s.observer.Changed(uid)
	s.propagator.Propagate(uid)
}

func (s *store) NotifyUnderLock(uid string) {
	s.mu.Lock()
	s.nodes[uid]++
	s.observer.Changed(uid) // want "observer.Changed called while mu is held"
	s.mu.Unlock()
}

func (s *store) DeferredUnlock(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.propagator.Propagate(uid) // want "propagator.Propagate called while mu is held"
}

func (s *store) removeLocked(uid string) {
	delete(s.nodes, uid)
	s.observer.Changed(uid) // want "observer.Changed called while mu is held"
}

func (s *store) Remove(uid string) {
	s.mu.Lock()
	s.removeLocked(uid)
	s.mu.Unlock()
}
