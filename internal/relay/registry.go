package relay

import (
	"sync"

	"github.com/google/uuid"

	"github.com/camlink/frame-relay/internal/logger"
)

// watcherBuffer is the per-watcher channel depth. A watcher that falls this
// far behind starts losing frames instead of blocking the publisher.
const watcherBuffer = 2

// Watcher is a registered delivery channel for one viewer connection. The
// owning connection handler reads Frames and unregisters on write failure,
// which closes the channel and drops the watcher from its session set.
type Watcher struct {
	ID      string
	Session string
	ch      chan []byte
}

// Frames returns the channel frames are delivered on. It is closed when the
// watcher is unregistered.
func (w *Watcher) Frames() <-chan []byte {
	return w.ch
}

// WatcherRegistry tracks the open watcher connections per session key.
// All mutation and fan-out iteration happen under one mutex, so a broadcast
// never observes a torn set and a channel is never written after close.
type WatcherRegistry struct {
	mu       sync.Mutex
	sessions map[string]map[string]*Watcher
}

// NewWatcherRegistry creates an empty registry.
func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{sessions: make(map[string]map[string]*Watcher)}
}

// Register adds a new watcher to the session's set, creating the set if
// absent.
func (r *WatcherRegistry) Register(session string) *Watcher {
	w := &Watcher{
		ID:      uuid.NewString(),
		Session: session,
		ch:      make(chan []byte, watcherBuffer),
	}

	r.mu.Lock()
	set, ok := r.sessions[session]
	if !ok {
		set = make(map[string]*Watcher)
		r.sessions[session] = set
	}
	set[w.ID] = w
	total := len(set)
	r.mu.Unlock()

	logger.Debug("WatcherRegistry", "watcher %s joined session %q (watchers: %d)", w.ID, session, total)
	return w
}

// Unregister removes the watcher and closes its channel. The session's set is
// deleted once empty so idle sessions hold no memory. Safe to call more than
// once.
func (r *WatcherRegistry) Unregister(w *Watcher) bool {
	r.mu.Lock()
	set, ok := r.sessions[w.Session]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if _, ok := set[w.ID]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(set, w.ID)
	if len(set) == 0 {
		delete(r.sessions, w.Session)
	}
	close(w.ch)
	remaining := len(set)
	r.mu.Unlock()

	logger.Debug("WatcherRegistry", "watcher %s left session %q (watchers: %d)", w.ID, w.Session, remaining)
	return true
}

// Broadcast offers the frame to every watcher of the session without
// blocking. Watchers whose buffers are full skip this frame; since frames are
// whole images, dropping one for a slow consumer is always safe.
func (r *WatcherRegistry) Broadcast(session string, frame []byte) (delivered, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.sessions[session] {
		select {
		case w.ch <- frame:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}

// Count returns the number of watchers registered for the session.
func (r *WatcherRegistry) Count(session string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions[session])
}

// Sessions returns the session keys with at least one watcher.
func (r *WatcherRegistry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	return keys
}

// Uploader is a registered ingestion connection for one session. Closing is
// delegated to the owning transport through the close callback; the registry
// only needs to be able to force it shut.
type Uploader struct {
	ID      string
	Session string

	closeOnce sync.Once
	close     func()
}

// Close force-closes the underlying ingestion channel. Invoked at most once.
func (u *Uploader) Close() {
	u.closeOnce.Do(func() {
		if u.close != nil {
			u.close()
		}
	})
}

// UploaderRegistry tracks the open ingestion connections per session key.
// Protocol intent is one producer per session, but the registry routes
// whatever arrives and does not enforce exclusivity.
type UploaderRegistry struct {
	mu       sync.Mutex
	sessions map[string]map[string]*Uploader
}

// NewUploaderRegistry creates an empty registry.
func NewUploaderRegistry() *UploaderRegistry {
	return &UploaderRegistry{sessions: make(map[string]map[string]*Uploader)}
}

// Register adds an ingestion connection to the session's set. The close
// callback must shut the underlying connection when invoked.
func (r *UploaderRegistry) Register(session string, close func()) *Uploader {
	u := &Uploader{
		ID:      uuid.NewString(),
		Session: session,
		close:   close,
	}

	r.mu.Lock()
	set, ok := r.sessions[session]
	if !ok {
		set = make(map[string]*Uploader)
		r.sessions[session] = set
	}
	set[u.ID] = u
	r.mu.Unlock()

	logger.Info("UploaderRegistry", "uploader %s connected to session %q", u.ID, session)
	return u
}

// Unregister removes the uploader. Safe to call more than once.
func (r *UploaderRegistry) Unregister(u *Uploader) bool {
	r.mu.Lock()
	set, ok := r.sessions[u.Session]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if _, ok := set[u.ID]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(set, u.ID)
	if len(set) == 0 {
		delete(r.sessions, u.Session)
	}
	r.mu.Unlock()

	logger.Info("UploaderRegistry", "uploader %s disconnected from session %q", u.ID, u.Session)
	return true
}

// CloseAll force-closes every uploader of the session and removes them,
// returning how many were closed.
func (r *UploaderRegistry) CloseAll(session string) int {
	r.mu.Lock()
	set := r.sessions[session]
	delete(r.sessions, session)
	r.mu.Unlock()

	for _, u := range set {
		u.Close()
	}
	return len(set)
}

// IDs returns the connection IDs of the session's uploaders.
func (r *UploaderRegistry) IDs(session string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.sessions[session]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// Sessions returns the session keys with at least one uploader.
func (r *UploaderRegistry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	return keys
}
