package local

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestSetIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := New()

	if ok, err := s.SetIfAbsent(ctx, "k", []byte("a"), 0); err != nil || !ok {
		t.Fatalf("first SetIfAbsent: ok=%v err=%v", ok, err)
	}
	if ok, err := s.SetIfAbsent(ctx, "k", []byte("b"), 0); err != nil || ok {
		t.Fatalf("second SetIfAbsent must be rejected: ok=%v err=%v", ok, err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(v) != "a" {
		t.Fatalf("first value must win: ok=%v err=%v v=%q", ok, err, v)
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Set(ctx, "k", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatalf("entry should be live before TTL")
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("entry should expire after TTL")
	}
	// an expired slot is free for a conditional set again
	if ok, err := s.SetIfAbsent(ctx, "k", []byte("w"), 0); err != nil || !ok {
		t.Fatalf("SetIfAbsent after expiry: ok=%v err=%v", ok, err)
	}
}

func TestPrefix(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, err := s.Prefix(ctx, "k", 4); err != nil || ok {
		t.Fatalf("absent key: ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "k", []byte("abcdef"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	b, ok, err := s.Prefix(ctx, "k", 4)
	if err != nil || !ok || !bytes.Equal(b, []byte("abcd")) {
		t.Fatalf("prefix: ok=%v err=%v b=%q", ok, err, b)
	}

	// shorter value returned in full
	b, ok, err = s.Prefix(ctx, "k", 100)
	if err != nil || !ok || !bytes.Equal(b, []byte("abcdef")) {
		t.Fatalf("short value: ok=%v err=%v b=%q", ok, err, b)
	}

	// zero-length peek still reports existence
	if _, ok, err := s.Prefix(ctx, "k", 0); err != nil || !ok {
		t.Fatalf("zero peek: ok=%v err=%v", ok, err)
	}
}

func TestDelAndExists(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Fatalf("Exists should see the entry")
	}
	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Fatalf("Exists after Del")
	}
}
