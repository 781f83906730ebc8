package night

import "sync"

// State is the process-wide day/night flag. It is not persisted: the
// app seeds it from wall-clock time at startup and only the controller
// mutates it afterwards.
type State struct {
	mu    sync.Mutex
	night bool
}

// NewState creates the flag with its initial value.
func NewState(initial bool) *State {
	return &State{night: initial}
}

// IsNight reports the current regime.
func (s *State) IsNight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.night
}

func (s *State) set(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.night = v
}
