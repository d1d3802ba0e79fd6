package store

import (
	"context"
	"errors"
	"testing"

	"github.com/lpoller/go-hasp/v1/lockrec"
)

// testStoreCAS exercises the conditional-write contract every Store
// implementation must honor.
func testStoreCAS(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, _, err := s.Read(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("read missing: %v", err)
	}

	// create-only write against an absent document
	v1, err := s.Write(ctx, "doc", []byte(`{"a":1}`), lockrec.UnassignedVersion)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !v1.Assigned() {
		t.Fatalf("create returned %s", v1)
	}

	// create-only write over an existing document loses
	if _, err := s.Write(ctx, "doc", []byte(`{"a":2}`), lockrec.UnassignedVersion); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("duplicate create: %v", err)
	}

	body, rv, err := s.Read(ctx, "doc")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != `{"a":1}` {
		t.Fatalf("body %q", body)
	}
	if !rv.Equal(v1) {
		t.Fatalf("read version %s, write returned %s", rv, v1)
	}

	// CAS with the current version wins and advances the token
	v2, err := s.Write(ctx, "doc", []byte(`{"a":2}`), v1)
	if err != nil {
		t.Fatalf("cas write: %v", err)
	}
	if v2.Equal(v1) {
		t.Fatalf("version did not advance: %s", v2)
	}

	// a stale token loses
	if _, err := s.Write(ctx, "doc", []byte(`{"a":3}`), v1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale write: %v", err)
	}

	// CAS against a missing document loses
	if _, err := s.Write(ctx, "other", []byte(`{}`), v2); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("write missing with assigned version: %v", err)
	}

	// delete honors the same token rules
	if err := s.Delete(ctx, "doc", v1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale delete: %v", err)
	}
	if err := s.Delete(ctx, "doc", v2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "doc", v2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete missing: %v", err)
	}
	if _, _, err := s.Read(ctx, "doc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("read after delete: %v", err)
	}
}

func TestInMemoryCAS(t *testing.T) {
	testStoreCAS(t, NewInMemory())
}

func TestInMemorySingleWinnerPerGeneration(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	v, err := s.Write(ctx, "doc", []byte(`{}`), lockrec.UnassignedVersion)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 16
	wins := make(chan lockrec.Version, racers)
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		go func() {
			nv, err := s.Write(ctx, "doc", []byte(`{"w":1}`), v)
			if err != nil {
				errs <- err
				return
			}
			wins <- nv
		}()
	}
	var won, lost int
	for i := 0; i < racers; i++ {
		select {
		case <-wins:
			won++
		case err := <-errs:
			if !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("unexpected error: %v", err)
			}
			lost++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner, got %d (lost %d)", won, lost)
	}
}
