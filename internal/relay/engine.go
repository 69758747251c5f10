package relay

import (
	"sort"
	"sync"

	"github.com/camlink/frame-relay/internal/logger"
	"github.com/camlink/frame-relay/internal/metrics"
)

// Engine owns the per-session frame store and the watcher/uploader
// registries, and fans published frames out to watchers. One Engine instance
// is one independent relay; nothing is process-global.
type Engine struct {
	store     *FrameStore
	watchers  *WatcherRegistry
	uploaders *UploaderRegistry
	metrics   *metrics.Metrics

	mu      sync.Mutex
	started map[string]bool // sessions that have received at least one frame
}

// SessionStatus describes one session for the status endpoint.
type SessionStatus struct {
	Session    string   `json:"session"`
	HasFrame   bool     `json:"has_frame"`
	FrameBytes int      `json:"frame_bytes"`
	Watchers   int      `json:"watchers"`
	Uploaders  []string `json:"uploaders"`
}

// NewEngine creates an engine reporting into the given metrics.
func NewEngine(m *metrics.Metrics) *Engine {
	return &Engine{
		store:     NewFrameStore(),
		watchers:  NewWatcherRegistry(),
		uploaders: NewUploaderRegistry(),
		metrics:   m,
		started:   make(map[string]bool),
	}
}

// Publish stores the frame as the session's latest and offers it to every
// registered watcher of that session. A watcher that cannot accept the frame
// (full buffer, dying connection) loses this frame only; delivery to the
// remaining watchers and the producer's session are never affected.
func (e *Engine) Publish(session string, frame []byte) {
	e.store.Put(session, frame)

	e.mu.Lock()
	first := !e.started[session]
	e.started[session] = true
	e.mu.Unlock()
	if first {
		logger.Info("Engine", "first frame for session %q (%d bytes)", session, len(frame))
	}

	delivered, dropped := e.watchers.Broadcast(session, frame)

	e.metrics.FramesPublished.Add(1)
	e.metrics.FramesDelivered.Add(uint64(delivered))
	e.metrics.FramesDropped.Add(uint64(dropped))
}

// Subscribe registers a watcher for the session and primes it with the
// current stored frame, if any, so a new viewer does not wait for the next
// producer frame.
func (e *Engine) Subscribe(session string) *Watcher {
	w := e.watchers.Register(session)
	e.metrics.ActiveWatchers.Add(1)

	if frame, ok := e.store.Get(session); ok {
		delivered, dropped := 0, 0
		select {
		case w.ch <- frame:
			delivered = 1
		default:
			dropped = 1
		}
		e.metrics.FramesDelivered.Add(uint64(delivered))
		e.metrics.FramesDropped.Add(uint64(dropped))
	}
	return w
}

// Unsubscribe removes the watcher and closes its delivery channel. Safe to
// call more than once.
func (e *Engine) Unsubscribe(w *Watcher) {
	if e.watchers.Unregister(w) {
		e.metrics.ActiveWatchers.Add(-1)
	}
}

// AddUploader tracks an ingestion connection for the session. The close
// callback is invoked when the session is administratively disconnected.
func (e *Engine) AddUploader(session string, close func()) *Uploader {
	u := e.uploaders.Register(session, close)
	e.metrics.ActiveUploaders.Add(1)
	return u
}

// RemoveUploader drops the uploader registration. The last published frame
// and any watchers stay untouched. Safe to call more than once.
func (e *Engine) RemoveUploader(u *Uploader) {
	if e.uploaders.Unregister(u) {
		e.metrics.ActiveUploaders.Add(-1)
	}
}

// Frame returns the session's latest stored frame.
func (e *Engine) Frame(session string) ([]byte, bool) {
	return e.store.Get(session)
}

// WatcherCount returns the number of watchers registered for the session.
func (e *Engine) WatcherCount(session string) int {
	return e.watchers.Count(session)
}

// Disconnect force-closes every uploader of the session and clears its
// stored frame. Returns the number of uploader connections closed. Watchers
// stay registered; they simply stop receiving frames.
func (e *Engine) Disconnect(session string) int {
	closed := e.uploaders.CloseAll(session)
	if closed > 0 {
		e.metrics.ActiveUploaders.Add(-int64(closed))
	}
	e.store.Clear(session)

	e.mu.Lock()
	delete(e.started, session)
	e.mu.Unlock()

	e.metrics.AdminDisconnects.Add(1)
	logger.Info("Engine", "session %q disconnected (%d uploaders closed)", session, closed)
	return closed
}

// Snapshot reports every session with a stored frame, a watcher, or an
// uploader. Sessions never published to and never watched do not appear.
func (e *Engine) Snapshot() []SessionStatus {
	seen := make(map[string]struct{})
	for _, s := range e.store.Sessions() {
		seen[s] = struct{}{}
	}
	for _, s := range e.watchers.Sessions() {
		seen[s] = struct{}{}
	}
	for _, s := range e.uploaders.Sessions() {
		seen[s] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for s := range seen {
		keys = append(keys, s)
	}
	sort.Strings(keys)

	statuses := make([]SessionStatus, 0, len(keys))
	for _, s := range keys {
		frame, hasFrame := e.store.Get(s)
		uploaderIDs := e.uploaders.IDs(s)
		sort.Strings(uploaderIDs)
		statuses = append(statuses, SessionStatus{
			Session:    s,
			HasFrame:   hasFrame,
			FrameBytes: len(frame),
			Watchers:   e.watchers.Count(s),
			Uploaders:  uploaderIDs,
		})
	}
	return statuses
}
