package services

import (
	"testing"
	"time"

	"vitacore/internal/models"
)

func testSession(key string) *models.CompletionSession {
	now := time.Now()
	return &models.CompletionSession{
		Key:          key,
		UserID:       "user-1",
		ActivityID:   "act-1",
		ActivityType: models.ActivityWorkout,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	if _, ok := store.Get("s1"); ok {
		t.Error("Expected no session before Put")
	}

	store.Put(testSession("s1"))
	sess, ok := store.Get("s1")
	if !ok || sess.Key != "s1" {
		t.Fatalf("Expected stored session, got %v", sess)
	}
	if store.Count() != 1 {
		t.Errorf("Count: got %d, want 1", store.Count())
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Error("Session survived Delete")
	}

	// Deleting again must be harmless
	store.Delete("s1")
}

func TestSessionStoreKeyLockStable(t *testing.T) {
	store := NewSessionStore()

	first := store.KeyLock("s1")
	second := store.KeyLock("s1")
	if first != second {
		t.Error("KeyLock returned different mutexes for the same key")
	}

	other := store.KeyLock("s2")
	if first == other {
		t.Error("KeyLock shared a mutex across keys")
	}
}

func TestSessionStoreReap(t *testing.T) {
	store := NewSessionStore()

	stale := testSession("stale")
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	store.Put(stale)

	fresh := testSession("fresh")
	store.Put(fresh)

	removed := store.Reap(time.Hour)
	if removed != 1 {
		t.Errorf("Reap removed %d sessions, want 1", removed)
	}
	if _, ok := store.Get("stale"); ok {
		t.Error("Stale session survived reap")
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Error("Fresh session was reaped")
	}
}
