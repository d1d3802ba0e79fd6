package lockrec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Wire field names of a stored lock document.
const (
	fieldScopeName    = "scope_name"
	fieldJobID        = "job_id"
	fieldLockTime     = "lock_time"
	fieldLockDuration = "lock_duration_seconds"
	fieldReleased     = "released"
	fieldResource     = "resource"
	fieldResourceType = "resource_type"
)

// MarshalWire renders the record body stored under the lock id. The version
// is deliberately absent: the store owns it and supplies it on every read.
// Resource locks always emit both resource fields, even for an empty payload,
// so every body the module writes parses back.
func (l Lock) MarshalWire() ([]byte, error) {
	doc := map[string]any{
		fieldScopeName:    l.scopeName,
		fieldJobID:        l.jobID,
		fieldLockTime:     l.lockTime.Unix(),
		fieldLockDuration: l.lockDurationSeconds,
		fieldReleased:     l.released,
	}
	if l.IsResourceLock() {
		doc[fieldResource] = l.resource
		doc[fieldResourceType] = l.resourceType
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return data, nil
}

// UnmarshalWire parses a record body read from the store, pairing it with
// the version the read returned. The schema is strict: every mandatory field
// must be present and unknown fields are rejected rather than ignored, so a
// foreign or future document can never be half-understood silently.
func UnmarshalWire(data []byte, version Version) (Lock, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Lock{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var (
		scopeName    string
		jobID        string
		lockTime     time.Time
		duration     int64
		released     bool
		resource     map[string]any
		resourceType string
	)
	for name, value := range raw {
		var err error
		switch name {
		case fieldScopeName:
			scopeName, err = wireString(name, value)
		case fieldJobID:
			jobID, err = wireString(name, value)
		case fieldLockTime:
			var secs int64
			if secs, err = wireInt(name, value); err == nil {
				lockTime = time.Unix(secs, 0).UTC()
			}
		case fieldLockDuration:
			duration, err = wireInt(name, value)
		case fieldReleased:
			var ok bool
			if released, ok = value.(bool); !ok {
				err = fmt.Errorf("%w: field %q is not a boolean", ErrMalformed, name)
			}
		case fieldResource:
			var ok bool
			if resource, ok = value.(map[string]any); !ok {
				err = fmt.Errorf("%w: field %q is not an object", ErrMalformed, name)
			}
		case fieldResourceType:
			resourceType, err = wireString(name, value)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		if err != nil {
			return Lock{}, err
		}
	}

	for _, f := range []struct {
		name    string
		present bool
	}{
		{fieldScopeName, hasKey(raw, fieldScopeName)},
		{fieldJobID, hasKey(raw, fieldJobID)},
		{fieldLockTime, hasKey(raw, fieldLockTime)},
		{fieldLockDuration, hasKey(raw, fieldLockDuration)},
		{fieldReleased, hasKey(raw, fieldReleased)},
	} {
		if !f.present {
			return Lock{}, fmt.Errorf("%w: %q", ErrMissingField, f.name)
		}
	}

	if resource != nil {
		return NewResourceWithVersion(scopeName, jobID, resourceType, resource, lockTime, duration, released, version)
	}
	if resourceType != "" {
		return Lock{}, fmt.Errorf("%w: resource_type present without resource", ErrInvalidArgument)
	}
	return NewWithVersion(scopeName, jobID, lockTime, duration, released, version)
}

func hasKey(raw map[string]any, name string) bool {
	_, ok := raw[name]
	return ok
}

func wireString(name string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", ErrMalformed, name)
	}
	return s, nil
}

func wireInt(name string, value any) (int64, error) {
	num, ok := value.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: field %q is not a number", ErrMalformed, name)
	}
	n, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: field %q is not an integer", ErrMalformed, name)
	}
	return n, nil
}
