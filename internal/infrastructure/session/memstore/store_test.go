package memstore

import (
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

func TestPutGetRoundtrip(t *testing.T) {
	store := New(0, nil)
	defer store.Close()

	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected miss for unknown session")
	}

	store.Put(domain.SessionState{SessionKey: "s1", TurnCount: 2, LastIntent: "billing"})
	state, ok := store.Get("s1")
	if !ok {
		t.Fatal("expected stored state")
	}
	if state.TurnCount != 2 || state.LastIntent != "billing" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := New(0, nil)
	defer store.Close()

	store.Put(domain.SessionState{SessionKey: "s1"})
	store.Delete("s1")
	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatal("expected state gone after delete")
	}
}

func TestAcquireSerializesTurnsPerSession(t *testing.T) {
	store := New(0, nil)
	defer store.Close()

	release := store.Acquire("s1")

	var order []string
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		secondRelease := store.Acquire("s1")
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		secondRelease()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, "first")
	mu.Unlock()
	release()
	<-done

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("turns not serialized, order %v", order)
	}
}

func TestAcquireDifferentSessionsDoNotBlock(t *testing.T) {
	store := New(0, nil)
	defer store.Close()

	release := store.Acquire("s1")
	defer release()

	done := make(chan struct{})
	go func() {
		other := store.Acquire("s2")
		other()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent session blocked on another session's turn")
	}
}

func TestDeleteDuringTurnKeepsSerialization(t *testing.T) {
	store := New(0, nil)
	defer store.Close()

	store.Put(domain.SessionState{SessionKey: "s1", TurnCount: 3})
	release := store.Acquire("s1")

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatal("expected state cleared by delete")
	}

	acquired := make(chan struct{})
	go func() {
		second := store.Acquire("s1")
		close(acquired)
		second()
	}()

	// The held turn mutex must keep serializing even after the delete.
	select {
	case <-acquired:
		t.Fatal("second turn started while the first still held the session")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second turn never started after release")
	}
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	store := New(25*time.Millisecond, nil)
	defer store.Close()

	store.Put(domain.SessionState{SessionKey: "s1", TurnCount: 1})

	// Reads refresh last access, so wait out several janitor cycles first.
	time.Sleep(200 * time.Millisecond)
	if _, ok := store.Get("s1"); ok {
		t.Fatal("idle session was not evicted")
	}
}

func TestHeldSessionSurvivesEviction(t *testing.T) {
	store := New(25*time.Millisecond, nil)
	defer store.Close()

	store.Put(domain.SessionState{SessionKey: "s1", TurnCount: 1})
	release := store.Acquire("s1")

	time.Sleep(120 * time.Millisecond)
	if _, ok := store.Get("s1"); !ok {
		t.Fatal("session with a turn in flight must not be evicted")
	}
	release()
}
