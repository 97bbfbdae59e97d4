package runtime

import (
	"sync"
)

// Reducer is a pure transition function of a state container.
type Reducer[S, A any] func(state S, action A) S

// Store serializes the transitions of one state container.
// Each Dispatch is applied atomically with respect to the others; observers
// receive the resulting snapshot after the lock is released.
type Store[S, A any] struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex
	state     S
	reduce    Reducer[S, A]
	observers map[int]func(S)
	nextID    int
}

func NewStore[S, A any](initial S, reduce Reducer[S, A]) *Store[S, A] {
	return &Store[S, A]{
		state:     initial,
		reduce:    reduce,
		observers: make(map[int]func(S)),
	}
}

// State returns the current snapshot.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies action and returns the new snapshot.
func (s *Store[S, A]) Dispatch(action A) S {
	// notifyMu keeps observer calls in dispatch order
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state = s.reduce(s.state, action)
	next := s.state
	observers := make([]func(S), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
	return next
}

// Subscribe registers an observer and returns its removal function.
// Observers must not dispatch on the same store.
func (s *Store[S, A]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}
