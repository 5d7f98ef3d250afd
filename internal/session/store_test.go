package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	if _, ok, _ := s.Get(ctx, "a", "cart"); ok {
		t.Fatal("Get on empty store reported a value")
	}

	if err := s.Set(ctx, "a", "cart", "payload"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := s.Get(ctx, "a", "cart")
	if err != nil || !ok || val != "payload" {
		t.Fatalf("Get = (%q, %v, %v), want (payload, true, nil)", val, ok, err)
	}

	// Same key under a different session must be isolated.
	if _, ok, _ := s.Get(ctx, "b", "cart"); ok {
		t.Error("session b sees session a's value")
	}

	if err := s.Delete(ctx, "a", "cart"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "a", "cart"); ok {
		t.Error("value survived Delete")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	s.Set(ctx, "a", "token", "t1")
	if _, ok, _ := s.Get(ctx, "a", "token"); !ok {
		t.Fatal("value missing before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "a", "token"); ok {
		t.Error("value survived past TTL")
	}
}
