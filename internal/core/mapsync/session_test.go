package mapsync_test

import (
	"testing"
	"time"

	"github.com/samirrijal/terramind/internal/core/mapsync"
)

func newStore(limits mapsync.SessionLimits) *mapsync.SessionStore {
	return mapsync.NewSessionStore(mapsync.NewSynchronizer(mapsync.DefaultOptions()), limits)
}

// fakeClock is advanced by hand.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestSessionStore_IsolatesSessions(t *testing.T) {
	store := newStore(mapsync.SessionLimits{})
	if _, _, err := store.Apply("a", rasterPayload(nil)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Apply("b", vectorPayload()); err != nil {
		t.Fatal(err)
	}

	a, ok := store.State("a")
	if !ok {
		t.Fatal("session a missing")
	}
	if _, ok := a.Sources[mapsync.RasterID]; !ok {
		t.Error("session a should hold the raster source")
	}
	b, _ := store.State("b")
	if _, ok := b.Sources[mapsync.RasterID]; ok {
		t.Error("session b must not see session a's raster")
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", store.Len())
	}

	store.Drop("a")
	if _, ok := store.State("a"); ok {
		t.Error("session a should be gone")
	}
}

func TestSessionStore_ClearUnknownDoesNotCreate(t *testing.T) {
	store := newStore(mapsync.SessionLimits{})

	cmds, state, ok, err := store.Clear("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unknown session must not report ok")
	}
	if len(cmds) != 0 || len(state.Sources) != 0 || len(state.Layers) != 0 {
		t.Errorf("expected nothing for unknown session, got cmds=%v state=%+v", cmds, state)
	}
	if store.Len() != 0 {
		t.Errorf("clear created a session: len=%d", store.Len())
	}
	if _, ok := store.State("ghost"); ok {
		t.Error("session should still be unknown")
	}
}

func TestSessionStore_ClearExisting(t *testing.T) {
	store := newStore(mapsync.SessionLimits{})
	if _, _, err := store.Apply("a", rasterPayload(nil)); err != nil {
		t.Fatal(err)
	}

	cmds, state, ok, err := store.Clear("a")
	if err != nil || !ok {
		t.Fatalf("clear: ok=%v err=%v", ok, err)
	}
	if len(cmds) == 0 {
		t.Error("expected remove commands")
	}
	if len(state.Sources) != 0 || len(state.Layers) != 0 {
		t.Errorf("expected empty state, got %+v", state)
	}
	if store.Len() != 1 {
		t.Errorf("cleared session should stay tracked, len=%d", store.Len())
	}
}

func TestSessionStore_EvictsLeastRecentlyUsed(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := newStore(mapsync.SessionLimits{MaxSessions: 2})
	store.SetClock(clock.now)

	for _, id := range []string{"a", "b"} {
		if _, _, err := store.Apply(id, rasterPayload(nil)); err != nil {
			t.Fatal(err)
		}
		clock.advance(time.Second)
	}
	// Reading a makes b the oldest.
	if _, ok := store.State("a"); !ok {
		t.Fatal("session a missing")
	}
	clock.advance(time.Second)
	if _, _, err := store.Apply("c", rasterPayload(nil)); err != nil {
		t.Fatal(err)
	}

	if store.Len() != 2 {
		t.Errorf("expected cap of 2 sessions, got %d", store.Len())
	}
	if _, ok := store.State("b"); ok {
		t.Error("session b should have been evicted")
	}
	for _, id := range []string{"a", "c"} {
		if _, ok := store.State(id); !ok {
			t.Errorf("session %s should survive", id)
		}
	}
}

func TestSessionStore_ExpiresIdleSessions(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := newStore(mapsync.SessionLimits{IdleTTL: time.Hour})
	store.SetClock(clock.now)

	if _, _, err := store.Apply("old", rasterPayload(nil)); err != nil {
		t.Fatal(err)
	}
	clock.advance(30 * time.Minute)
	if _, _, err := store.Apply("fresh", rasterPayload(nil)); err != nil {
		t.Fatal(err)
	}
	clock.advance(45 * time.Minute)

	if _, ok := store.State("old"); ok {
		t.Error("idle session should have expired")
	}
	if _, ok := store.State("fresh"); !ok {
		t.Error("recent session should survive")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 session, got %d", store.Len())
	}

	clock.advance(2 * time.Hour)
	if _, _, ok, _ := store.Clear("fresh"); ok {
		t.Error("clear must not revive an expired session")
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
}
