package lockrec

import (
	"fmt"
	"reflect"
	"time"
)

// Lock is one immutable snapshot of a lock record. Transitions return a new
// value; the receiver is never modified, which is what makes records safe to
// share between goroutines without synchronization.
type Lock struct {
	lockID              string
	scopeName           string
	jobID               string
	lockTime            time.Time
	lockDurationSeconds int64
	released            bool
	version             Version
	resource            map[string]any
	resourceType        string
}

// New builds a plain job lock that has not been written to the store yet.
func New(scopeName, jobID string, lockTime time.Time, lockDurationSeconds int64, released bool) (Lock, error) {
	return NewWithVersion(scopeName, jobID, lockTime, lockDurationSeconds, released, UnassignedVersion)
}

// NewWithVersion builds a plain job lock carrying a store-issued version,
// typically when reconstructing a record read back from the store.
func NewWithVersion(scopeName, jobID string, lockTime time.Time, lockDurationSeconds int64, released bool, version Version) (Lock, error) {
	if err := validateCommon(scopeName, jobID, lockTime, lockDurationSeconds); err != nil {
		return Lock{}, err
	}
	return Lock{
		lockID:              GenerateLockID(scopeName, jobID),
		scopeName:           scopeName,
		jobID:               jobID,
		lockTime:            truncateToSecond(lockTime),
		lockDurationSeconds: lockDurationSeconds,
		released:            released,
		version:             version,
	}, nil
}

// NewResource builds a lock guarding the content of an arbitrary resource
// payload rather than a bare job identity. The id is derived eagerly, so an
// unserializable payload fails here with ErrSerialize.
func NewResource(scopeName, jobID, resourceType string, resource map[string]any, lockTime time.Time, lockDurationSeconds int64, released bool) (Lock, error) {
	return NewResourceWithVersion(scopeName, jobID, resourceType, resource, lockTime, lockDurationSeconds, released, UnassignedVersion)
}

// NewResourceWithVersion builds a resource lock carrying a store-issued
// version.
func NewResourceWithVersion(scopeName, jobID, resourceType string, resource map[string]any, lockTime time.Time, lockDurationSeconds int64, released bool, version Version) (Lock, error) {
	if err := validateCommon(scopeName, jobID, lockTime, lockDurationSeconds); err != nil {
		return Lock{}, err
	}
	if resourceType == "" || resource == nil {
		return Lock{}, fmt.Errorf("%w: resource locks require both resourceType and resource", ErrInvalidArgument)
	}
	norm, err := normalizeResource(resource)
	if err != nil {
		return Lock{}, err
	}
	id, err := resourceLockID(scopeName, resourceType, norm)
	if err != nil {
		return Lock{}, err
	}
	return Lock{
		lockID:              id,
		scopeName:           scopeName,
		jobID:               jobID,
		lockTime:            truncateToSecond(lockTime),
		lockDurationSeconds: lockDurationSeconds,
		released:            released,
		version:             version,
		resource:            norm,
		resourceType:        resourceType,
	}, nil
}

func validateCommon(scopeName, jobID string, lockTime time.Time, lockDurationSeconds int64) error {
	if scopeName == "" {
		return fmt.Errorf("%w: scopeName is required", ErrInvalidArgument)
	}
	if jobID == "" {
		return fmt.Errorf("%w: jobID is required", ErrInvalidArgument)
	}
	if lockTime.IsZero() {
		return fmt.Errorf("%w: lockTime is required", ErrInvalidArgument)
	}
	if lockDurationSeconds < 0 {
		return fmt.Errorf("%w: lockDurationSeconds must be >= 0", ErrInvalidArgument)
	}
	return nil
}

// Records carry second precision, normalized to UTC so equality does not
// depend on wall-clock location or monotonic readings.
func truncateToSecond(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0).UTC()
}

// LockID returns the deterministic identity of the lock slot.
func (l Lock) LockID() string { return l.lockID }

// ScopeName returns the namespace the lock belongs to.
func (l Lock) ScopeName() string { return l.scopeName }

// JobID returns the identity of the job this record was created for.
func (l Lock) JobID() string { return l.jobID }

// LockTime returns when this lock generation started being held.
func (l Lock) LockTime() time.Time { return l.lockTime }

// LockDurationSeconds returns how long from LockTime the lock stays valid.
func (l Lock) LockDurationSeconds() int64 { return l.lockDurationSeconds }

// Released reports whether the holder has explicitly released the lock.
func (l Lock) Released() bool { return l.released }

// Version returns the CAS token carried from the last confirmed store read
// or write, or UnassignedVersion before the first write.
func (l Lock) Version() Version { return l.version }

// IsResourceLock reports whether the record guards a resource payload.
func (l Lock) IsResourceLock() bool { return l.resource != nil }

// Resource returns the normalized payload of a resource lock, nil otherwise.
// Callers must not modify the returned map.
func (l Lock) Resource() map[string]any { return l.resource }

// ResourceType returns the payload namespace qualifier of a resource lock.
func (l Lock) ResourceType() string { return l.resourceType }

// WithVersion returns a copy stamped with the token the store issued after a
// confirmed write. Nothing else changes.
func (l Lock) WithVersion(v Version) Lock {
	l.version = v
	return l
}

// WithReleased returns a copy with the released flag replaced. Timing,
// identity and version are untouched.
func (l Lock) WithReleased(released bool) Lock {
	l.released = released
	return l
}

// Renewed returns a copy whose validity window restarts at lockTime for
// lockDurationSeconds, with the released flag replaced. Identity fields and
// the version are carried over: a renewal never changes what is locked, only
// when and whether it is held.
func (l Lock) Renewed(lockTime time.Time, lockDurationSeconds int64, released bool) Lock {
	l.lockTime = truncateToSecond(lockTime)
	l.lockDurationSeconds = lockDurationSeconds
	l.released = released
	return l
}

// IsExpired reports whether the validity window had already ended at now. A
// lock expiring exactly at now is still valid; takeover eligibility starts
// one second later.
func (l Lock) IsExpired(now time.Time) bool {
	return l.lockTime.Unix()+l.lockDurationSeconds < now.Unix()
}

// ExpiresAt returns the instant the validity window ends.
func (l Lock) ExpiresAt() time.Time {
	return time.Unix(l.lockTime.Unix()+l.lockDurationSeconds, 0).UTC()
}

// Equal reports structural equality over every field, version and resource
// payload included. Two snapshots of the same lock slot at different store
// generations are not equal; expiry is a separate question entirely.
func (l Lock) Equal(o Lock) bool {
	return l.lockID == o.lockID &&
		l.scopeName == o.scopeName &&
		l.jobID == o.jobID &&
		l.lockTime.Equal(o.lockTime) &&
		l.lockDurationSeconds == o.lockDurationSeconds &&
		l.released == o.released &&
		l.version == o.version &&
		l.resourceType == o.resourceType &&
		l.IsResourceLock() == o.IsResourceLock() &&
		reflect.DeepEqual(l.resource, o.resource)
}

func (l Lock) String() string {
	return fmt.Sprintf("lock %s (released=%t expires=%s version=%s)",
		l.lockID, l.released, l.ExpiresAt().Format(time.RFC3339), l.version)
}
