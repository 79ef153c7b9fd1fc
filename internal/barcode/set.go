package barcode

import "github.com/allbin/scanprov/internal/syncutil"

// Set is the session's scanned-format set. It keeps first-scan order and
// the zero value is ready to use.
type Set struct {
	mu    syncutil.Mutex
	ids   []string
	index map[string]struct{}
}

func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// Add records id and reports whether it was new.
func (s *Set) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; ok {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

func (s *Set) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the scanned ids in the order they were first seen.
func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.index = nil
}
