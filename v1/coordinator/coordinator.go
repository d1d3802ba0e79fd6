package coordinator

import (
	"context"
	"errors"
	"math/rand"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lpoller/go-hasp/v1/lockrec"
	"github.com/lpoller/go-hasp/v1/metrics"
	"github.com/lpoller/go-hasp/v1/signal"
	"github.com/lpoller/go-hasp/v1/store"
)

var tracer = otel.Tracer("github.com/lpoller/go-hasp/v1/coordinator")

var (
	// ErrNotAcquired is returned when the lock is held by another worker
	// and its lease has not lapsed.
	ErrNotAcquired = errors.New("coordinator: lock not acquired")
	// ErrLockReleased is returned when renewing a lock that was already
	// released.
	ErrLockReleased = errors.New("coordinator: lock already released")
)

// Config tunes retry behavior. The zero value uses the defaults.
type Config struct {
	// RetryBackoff is the base delay between conditional-write retries.
	RetryBackoff time.Duration
	// MaxAttempts bounds the conditional-write retries per acquisition.
	MaxAttempts int
	// PollInterval is how often a blocked Acquire re-checks the store when
	// no release signal arrives.
	PollInterval time.Duration
}

const (
	defaultRetryBackoff = 50 * time.Millisecond
	defaultMaxAttempts  = 3
	defaultPollInterval = time.Second
)

func (c Config) withDefaults() Config {
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	return c
}

// Coordinator acquires, renews, and releases locks against a Store, and
// announces releases on an optional Bus.
type Coordinator struct {
	store  store.Store
	bus    signal.Bus
	cfg    Config
	nodeID string
	now    func() time.Time
}

// New returns a Coordinator over the given store. bus may be nil; blocked
// acquirers then rely on polling alone.
func New(s store.Store, bus signal.Bus, cfg Config) (*Coordinator, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		store:  s,
		bus:    bus,
		cfg:    cfg.withDefaults(),
		nodeID: id,
		now:    time.Now,
	}, nil
}

// NodeID identifies this coordinator instance in traces.
func (c *Coordinator) NodeID() string { return c.nodeID }

// TryAcquire attempts to take the lock for jobID within scopeName for the
// given lease duration. It returns ErrNotAcquired without waiting when
// another worker holds an unexpired lease.
func (c *Coordinator) TryAcquire(ctx context.Context, scopeName, jobID string, duration time.Duration) (lockrec.Lock, error) {
	fresh := func(now time.Time) (lockrec.Lock, error) {
		return lockrec.New(scopeName, jobID, now, int64(duration/time.Second), false)
	}
	return c.tryAcquire(ctx, lockrec.GenerateLockID(scopeName, jobID), duration, fresh)
}

// TryAcquireResource is TryAcquire for a resource-scoped lock. The lock ID is
// derived from the resource payload, so callers holding equal payloads
// contend for the same lock.
func (c *Coordinator) TryAcquireResource(ctx context.Context, scopeName, jobID, resourceType string, resource map[string]any, duration time.Duration) (lockrec.Lock, error) {
	lockID, err := lockrec.GenerateResourceLockID(scopeName, resourceType, resource)
	if err != nil {
		return lockrec.Lock{}, err
	}
	fresh := func(now time.Time) (lockrec.Lock, error) {
		return lockrec.NewResource(scopeName, jobID, resourceType, resource, now, int64(duration/time.Second), false)
	}
	return c.tryAcquire(ctx, lockID, duration, fresh)
}

func (c *Coordinator) tryAcquire(ctx context.Context, lockID string, duration time.Duration, fresh func(time.Time) (lockrec.Lock, error)) (lockrec.Lock, error) {
	ctx, span := tracer.Start(ctx, "Coordinator.TryAcquire")
	defer span.End()
	span.SetAttributes(
		attribute.String("hasp.lock_id", lockID),
		attribute.String("hasp.node_id", c.nodeID),
	)

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		metrics.AcquireAttempts.Inc()
		now := c.now()

		body, version, err := c.store.Read(ctx, lockID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			lk, err := fresh(now)
			if err != nil {
				return lockrec.Lock{}, err
			}
			acquired, err := c.write(ctx, lk)
			if err == nil {
				metrics.Acquired.Inc()
				return acquired, nil
			}
			if !errors.Is(err, store.ErrVersionConflict) {
				return lockrec.Lock{}, err
			}
		case err != nil:
			return lockrec.Lock{}, err
		default:
			current, err := lockrec.UnmarshalWire(body, version)
			if err != nil {
				return lockrec.Lock{}, err
			}
			if !current.Released() && !current.IsExpired(now) {
				return lockrec.Lock{}, ErrNotAcquired
			}
			taken := current.Renewed(now, int64(duration/time.Second), false)
			acquired, err := c.write(ctx, taken)
			if err == nil {
				metrics.Acquired.Inc()
				metrics.Takeovers.Inc()
				return acquired, nil
			}
			if !errors.Is(err, store.ErrVersionConflict) {
				return lockrec.Lock{}, err
			}
		}

		metrics.Conflicts.Inc()
		if attempt == c.cfg.MaxAttempts-1 {
			break
		}
		if err := sleep(ctx, backoff(c.cfg.RetryBackoff, attempt)); err != nil {
			return lockrec.Lock{}, err
		}
	}
	return lockrec.Lock{}, ErrNotAcquired
}

// Acquire blocks until the lock is taken or ctx ends. It retries on each
// release signal and on every poll interval.
func (c *Coordinator) Acquire(ctx context.Context, scopeName, jobID string, duration time.Duration) (lockrec.Lock, error) {
	lockID := lockrec.GenerateLockID(scopeName, jobID)
	return c.acquireBlocking(ctx, lockID, func(ctx context.Context) (lockrec.Lock, error) {
		return c.TryAcquire(ctx, scopeName, jobID, duration)
	})
}

// AcquireResource is Acquire for a resource-scoped lock.
func (c *Coordinator) AcquireResource(ctx context.Context, scopeName, jobID, resourceType string, resource map[string]any, duration time.Duration) (lockrec.Lock, error) {
	lockID, err := lockrec.GenerateResourceLockID(scopeName, resourceType, resource)
	if err != nil {
		return lockrec.Lock{}, err
	}
	return c.acquireBlocking(ctx, lockID, func(ctx context.Context) (lockrec.Lock, error) {
		return c.TryAcquireResource(ctx, scopeName, jobID, resourceType, resource, duration)
	})
}

func (c *Coordinator) acquireBlocking(ctx context.Context, lockID string, try func(context.Context) (lockrec.Lock, error)) (lockrec.Lock, error) {
	ctx, span := tracer.Start(ctx, "Coordinator.Acquire")
	defer span.End()
	span.SetAttributes(
		attribute.String("hasp.lock_id", lockID),
		attribute.String("hasp.node_id", c.nodeID),
	)

	var release chan struct{}
	if c.bus != nil {
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		ch, err := c.bus.Subscribe(subCtx, signal.ReleaseKey(lockID))
		if err != nil {
			return lockrec.Lock{}, err
		}
		release = ch
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		lk, err := try(ctx)
		if err == nil {
			return lk, nil
		}
		if !errors.Is(err, ErrNotAcquired) {
			return lockrec.Lock{}, err
		}
		select {
		case <-release:
		case <-ticker.C:
		case <-ctx.Done():
			return lockrec.Lock{}, ctx.Err()
		}
	}
}

// Renew extends the lease of a held lock, resetting its acquisition time to
// now. The caller keeps working with the returned copy.
func (c *Coordinator) Renew(ctx context.Context, lk lockrec.Lock) (lockrec.Lock, error) {
	ctx, span := tracer.Start(ctx, "Coordinator.Renew")
	defer span.End()
	span.SetAttributes(attribute.String("hasp.lock_id", lk.LockID()))

	if lk.Released() {
		return lockrec.Lock{}, ErrLockReleased
	}
	renewed, err := c.write(ctx, lk.Renewed(c.now(), lk.LockDurationSeconds(), false))
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			metrics.Conflicts.Inc()
		}
		return lockrec.Lock{}, err
	}
	metrics.Renewals.Inc()
	return renewed, nil
}

// Release marks the lock released and announces it on the bus. The record
// stays in the store so the next acquirer reuses its version history.
func (c *Coordinator) Release(ctx context.Context, lk lockrec.Lock) (lockrec.Lock, error) {
	ctx, span := tracer.Start(ctx, "Coordinator.Release")
	defer span.End()
	span.SetAttributes(attribute.String("hasp.lock_id", lk.LockID()))

	released, err := c.write(ctx, lk.WithReleased(true))
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			metrics.Conflicts.Inc()
		}
		return lockrec.Lock{}, err
	}
	metrics.Released.Inc()
	if c.bus != nil {
		if err := c.bus.Publish(ctx, signal.ReleaseKey(lk.LockID())); err != nil {
			return released, err
		}
	}
	return released, nil
}

// Probe reads the current lock record without competing for it. The boolean
// is false when no record exists.
func (c *Coordinator) Probe(ctx context.Context, lockID string) (lockrec.Lock, bool, error) {
	body, version, err := c.store.Read(ctx, lockID)
	if errors.Is(err, store.ErrNotFound) {
		return lockrec.Lock{}, false, nil
	}
	if err != nil {
		return lockrec.Lock{}, false, err
	}
	lk, err := lockrec.UnmarshalWire(body, version)
	if err != nil {
		return lockrec.Lock{}, false, err
	}
	return lk, true, nil
}

// Delete removes the lock record. The caller must hold the lock; the delete
// is conditional on its version.
func (c *Coordinator) Delete(ctx context.Context, lk lockrec.Lock) error {
	return c.store.Delete(ctx, lk.LockID(), lk.Version())
}

func (c *Coordinator) write(ctx context.Context, lk lockrec.Lock) (lockrec.Lock, error) {
	body, err := lk.MarshalWire()
	if err != nil {
		return lockrec.Lock{}, err
	}
	version, err := c.store.Write(ctx, lk.LockID(), body, lk.Version())
	if err != nil {
		return lockrec.Lock{}, err
	}
	return lk.WithVersion(version), nil
}

// backoff returns the delay before retry attempt+1, doubling per attempt
// with up to 50% random jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << uint(attempt)
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
