package relay

import (
	"bytes"
	"testing"
	"time"

	"github.com/camlink/frame-relay/internal/metrics"
)

func newTestEngine() *Engine {
	return NewEngine(metrics.New())
}

func recvFrame(t *testing.T, w *Watcher) []byte {
	t.Helper()
	select {
	case frame, ok := <-w.Frames():
		if !ok {
			t.Fatalf("watcher channel closed unexpectedly")
		}
		return frame
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for frame")
		return nil
	}
}

func TestPublishStoresLatestFrame(t *testing.T) {
	e := newTestEngine()

	e.Publish("42", []byte("frame-1"))
	e.Publish("42", []byte("frame-2"))

	frame, ok := e.Frame("42")
	if !ok || !bytes.Equal(frame, []byte("frame-2")) {
		t.Fatalf("Frame = %q, %v; want frame-2", frame, ok)
	}
}

func TestSubscribePrimesFromStore(t *testing.T) {
	e := newTestEngine()
	e.Publish("42", []byte("stored"))

	w := e.Subscribe("42")
	defer e.Unsubscribe(w)

	if got := recvFrame(t, w); !bytes.Equal(got, []byte("stored")) {
		t.Fatalf("priming frame = %q, want stored frame", got)
	}
}

func TestSubscribeEmptySessionDeliversNothing(t *testing.T) {
	e := newTestEngine()

	w := e.Subscribe("42")
	defer e.Unsubscribe(w)

	select {
	case frame := <-w.Frames():
		t.Fatalf("unexpected frame %q for never-published session", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFanOutReachesAllWatchers(t *testing.T) {
	e := newTestEngine()

	watchers := make([]*Watcher, 3)
	for i := range watchers {
		watchers[i] = e.Subscribe("42")
		defer e.Unsubscribe(watchers[i])
	}

	e.Publish("42", []byte("frame"))

	for i, w := range watchers {
		if got := recvFrame(t, w); !bytes.Equal(got, []byte("frame")) {
			t.Fatalf("watcher %d got %q", i, got)
		}
	}
}

func TestUnsubscribedWatcherMissesPublish(t *testing.T) {
	e := newTestEngine()

	stay := e.Subscribe("42")
	defer e.Unsubscribe(stay)
	leave := e.Subscribe("42")
	e.Unsubscribe(leave)

	e.Publish("42", []byte("frame"))

	if got := recvFrame(t, stay); !bytes.Equal(got, []byte("frame")) {
		t.Fatalf("remaining watcher got %q", got)
	}
	// The unregistered watcher's channel is closed and drained.
	if frame, ok := <-leave.Frames(); ok {
		t.Fatalf("unregistered watcher received %q", frame)
	}
	if n := e.WatcherCount("42"); n != 1 {
		t.Fatalf("WatcherCount = %d, want 1", n)
	}
}

func TestSlowWatcherDoesNotBlockPublish(t *testing.T) {
	e := newTestEngine()

	slow := e.Subscribe("42")
	defer e.Unsubscribe(slow)

	// Publish past the buffer depth without the watcher reading. Publish
	// must return promptly every time.
	done := make(chan struct{})
	go func() {
		for i := 0; i < watcherBuffer+3; i++ {
			e.Publish("42", []byte{byte(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow watcher")
	}

	// The watcher kept the oldest buffered frames; the overflow was dropped,
	// and the store still holds the newest frame.
	if first := recvFrame(t, slow); first[0] != 0 {
		t.Fatalf("slow watcher first frame = %v, want frame 0", first)
	}
	if latest, _ := e.Frame("42"); latest[0] != watcherBuffer+2 {
		t.Fatalf("stored frame = %v, want newest", latest)
	}
}

func TestCrossSessionIsolation(t *testing.T) {
	e := newTestEngine()

	wa := e.Subscribe("a")
	defer e.Unsubscribe(wa)
	wb := e.Subscribe("b")
	defer e.Unsubscribe(wb)

	e.Publish("a", []byte("frame-a"))

	if got := recvFrame(t, wa); !bytes.Equal(got, []byte("frame-a")) {
		t.Fatalf("session a watcher got %q", got)
	}
	select {
	case frame := <-wb.Frames():
		t.Fatalf("session b watcher received %q from session a", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDisconnectClearsStateAndClosesUploaders(t *testing.T) {
	e := newTestEngine()

	closedA := 0
	e.AddUploader("a", func() { closedA++ })
	e.AddUploader("a", func() { closedA++ })
	closedB := 0
	uploaderB := e.AddUploader("b", func() { closedB++ })
	defer e.RemoveUploader(uploaderB)

	e.Publish("a", []byte("frame-a"))
	e.Publish("b", []byte("frame-b"))

	if n := e.Disconnect("a"); n != 2 {
		t.Fatalf("Disconnect = %d uploaders, want 2", n)
	}
	if closedA != 2 {
		t.Fatalf("closed %d session-a uploaders, want 2", closedA)
	}
	if _, ok := e.Frame("a"); ok {
		t.Fatalf("frame survives administrative disconnect")
	}

	// Session b is untouched.
	if closedB != 0 {
		t.Fatalf("session b uploader was closed")
	}
	if frame, ok := e.Frame("b"); !ok || !bytes.Equal(frame, []byte("frame-b")) {
		t.Fatalf("session b frame affected by disconnecting a")
	}
}

func TestSnapshotCoversOnlyActiveSessions(t *testing.T) {
	e := newTestEngine()

	e.Publish("framed", []byte("f"))
	w := e.Subscribe("watched")
	defer e.Unsubscribe(w)
	u := e.AddUploader("uploading", func() {})
	defer e.RemoveUploader(u)

	statuses := e.Snapshot()
	if len(statuses) != 3 {
		t.Fatalf("Snapshot has %d sessions, want 3: %+v", len(statuses), statuses)
	}

	byName := make(map[string]SessionStatus)
	for _, st := range statuses {
		byName[st.Session] = st
	}
	if st := byName["framed"]; !st.HasFrame || st.FrameBytes != 1 {
		t.Fatalf("framed status = %+v", st)
	}
	if st := byName["watched"]; st.HasFrame || st.Watchers != 1 {
		t.Fatalf("watched status = %+v", st)
	}
	if st := byName["uploading"]; len(st.Uploaders) != 1 || st.Uploaders[0] != u.ID {
		t.Fatalf("uploading status = %+v", st)
	}
	if _, ok := byName["never-seen"]; ok {
		t.Fatalf("snapshot invented a session")
	}
}
