package relay

import "sync"

// FrameStore holds the most recent frame per session key. A session holds at
// most one frame: a new frame unconditionally replaces the previous one.
// Session keys are opaque strings, created lazily on first Put.
type FrameStore struct {
	mu     sync.RWMutex
	frames map[string][]byte
}

// NewFrameStore creates an empty store.
func NewFrameStore() *FrameStore {
	return &FrameStore{frames: make(map[string][]byte)}
}

// Put replaces the stored frame for the session.
func (s *FrameStore) Put(session string, frame []byte) {
	s.mu.Lock()
	s.frames[session] = frame
	s.mu.Unlock()
}

// Get returns the stored frame for the session. Absence is a normal state,
// reported through ok, not an error.
func (s *FrameStore) Get(session string) ([]byte, bool) {
	s.mu.RLock()
	frame, ok := s.frames[session]
	s.mu.RUnlock()
	return frame, ok
}

// Clear removes the stored frame for the session.
func (s *FrameStore) Clear(session string) {
	s.mu.Lock()
	delete(s.frames, session)
	s.mu.Unlock()
}

// Sessions returns the session keys currently holding a frame.
func (s *FrameStore) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.frames))
	for k := range s.frames {
		keys = append(keys, k)
	}
	return keys
}
