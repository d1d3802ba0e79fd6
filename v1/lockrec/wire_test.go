package lockrec

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestWireRoundTripPlainLock(t *testing.T) {
	l := mustLock(t, "scheduler-jobs", "job-1", t0, 30, false)
	body, err := l.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalWire(body, UnassignedVersion)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(l) {
		t.Fatalf("round trip changed the lock:\n  in:  %s\n  out: %s", l, got)
	}
}

func TestWireRoundTripResourceLock(t *testing.T) {
	l := mustResourceLock(t, map[string]any{
		"repo":   "r1",
		"shards": []any{1, 2, 3},
		"meta":   map[string]any{"deep": true, "ratio": 0.5},
	})
	body, err := l.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalWire(body, UnassignedVersion)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(l) {
		t.Fatalf("round trip changed the lock:\n  in:  %s\n  out: %s", l, got)
	}
	if got.LockID() != l.LockID() {
		t.Fatalf("recomputed id %q differs from %q", got.LockID(), l.LockID())
	}
}

func TestWireRoundTripEmptyResourcePayload(t *testing.T) {
	l := mustResourceLock(t, map[string]any{})
	body, err := l.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw[fieldResource]; !ok {
		t.Fatal("resource lock body dropped the empty resource")
	}
	got, err := UnmarshalWire(body, UnassignedVersion)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(l) {
		t.Fatalf("round trip changed the lock:\n  in:  %s\n  out: %s", l, got)
	}
	if !got.IsResourceLock() || got.ResourceType() != "snapshot" {
		t.Fatalf("resource identity lost: %s", got)
	}
}

func TestWireCarriesVersionFromStore(t *testing.T) {
	l := mustLock(t, "s", "j", t0, 30, false)
	body, _ := l.MarshalWire()
	v := NewVersion(12, 3)
	got, err := UnmarshalWire(body, v)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Version().Equal(v) {
		t.Fatalf("version %s", got.Version())
	}
}

func TestWireBodyOmitsResourceFieldsForPlainLocks(t *testing.T) {
	l := mustLock(t, "s", "j", t0, 30, false)
	body, _ := l.MarshalWire()
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw[fieldResource]; ok {
		t.Fatal("plain lock body carries resource")
	}
	if _, ok := raw[fieldResourceType]; ok {
		t.Fatal("plain lock body carries resource_type")
	}
	if secs, ok := raw[fieldLockTime].(float64); !ok || int64(secs) != t0.Unix() {
		t.Fatalf("lock_time %v", raw[fieldLockTime])
	}
}

func TestWireMissingFields(t *testing.T) {
	full := map[string]any{
		"scope_name":            "s",
		"job_id":                "j",
		"lock_time":             t0.Unix(),
		"lock_duration_seconds": 30,
		"released":              false,
	}
	for _, missing := range []string{"scope_name", "job_id", "lock_time", "lock_duration_seconds", "released"} {
		doc := make(map[string]any, len(full))
		for k, v := range full {
			if k != missing {
				doc[k] = v
			}
		}
		body, _ := json.Marshal(doc)
		_, err := UnmarshalWire(body, UnassignedVersion)
		if !errors.Is(err, ErrMissingField) {
			t.Fatalf("missing %q: expected ErrMissingField, got %v", missing, err)
		}
	}
}

func TestWireUnknownField(t *testing.T) {
	body := []byte(`{"scope_name":"s","job_id":"j","lock_time":1,"lock_duration_seconds":30,"released":false,"owner":"me"}`)
	_, err := UnmarshalWire(body, UnassignedVersion)
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestWireMalformedDocuments(t *testing.T) {
	if _, err := UnmarshalWire([]byte(`not json`), UnassignedVersion); !errors.Is(err, ErrMalformed) {
		t.Fatalf("garbage body: %v", err)
	}
	body := []byte(`{"scope_name":"s","job_id":"j","lock_time":"soon","lock_duration_seconds":30,"released":false}`)
	if _, err := UnmarshalWire(body, UnassignedVersion); !errors.Is(err, ErrMalformed) {
		t.Fatalf("non-numeric lock_time: %v", err)
	}
	body = []byte(`{"scope_name":"s","job_id":"j","lock_time":1,"lock_duration_seconds":30,"released":"no"}`)
	if _, err := UnmarshalWire(body, UnassignedVersion); !errors.Is(err, ErrMalformed) {
		t.Fatalf("non-boolean released: %v", err)
	}
}

func TestWireResourceTypeWithoutResource(t *testing.T) {
	body := []byte(`{"scope_name":"s","job_id":"j","lock_time":1,"lock_duration_seconds":30,"released":false,"resource_type":"snapshot"}`)
	_, err := UnmarshalWire(body, UnassignedVersion)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWireResourceWithoutResourceType(t *testing.T) {
	body := []byte(`{"scope_name":"s","job_id":"j","lock_time":1,"lock_duration_seconds":30,"released":false,"resource":{"repo":"r1"}}`)
	_, err := UnmarshalWire(body, UnassignedVersion)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWireLockTimeSecondPrecision(t *testing.T) {
	at := time.Date(2024, 5, 14, 10, 30, 0, 999_000_000, time.UTC)
	l := mustLock(t, "s", "j", at, 30, false)
	body, _ := l.MarshalWire()
	got, err := UnmarshalWire(body, UnassignedVersion)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.LockTime().Equal(t0) {
		t.Fatalf("lock time %s", got.LockTime())
	}
}
