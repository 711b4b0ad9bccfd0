package navigation

import "sync"

// Static is a Navigator with a settable path that records redirects.
type Static struct {
	mu        sync.Mutex
	path      string
	redirects []string
}

func NewStatic(path string) *Static {
	return &Static{path: path}
}

func (s *Static) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *Static) SetPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
}

// Redirect records path and makes it the current path.
func (s *Static) Redirect(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects = append(s.redirects, path)
	s.path = path
}

func (s *Static) Redirects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.redirects...)
}
