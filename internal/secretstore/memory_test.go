package secretstore

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	h, err := s.Create(ctx, []byte("super-secret"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, h)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "super-secret" {
		t.Fatalf("got %q", got)
	}

	if err := s.Delete(ctx, h); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, h); err == nil {
		t.Fatalf("expected error reading deleted handle")
	}
}

func TestMemoryStoreHandlesAreUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	h1, _ := s.Create(ctx, []byte("a"))
	h2, _ := s.Create(ctx, []byte("b"))
	if h1 == h2 {
		t.Fatalf("expected distinct handles")
	}
}
