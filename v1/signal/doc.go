// Package signal propagates lock lifecycle events between coordinators so a
// blocked acquirer can re-attempt as soon as the holder releases, instead of
// polling the store until the lock expires. Delivery is best-effort and
// at-most-once per subscriber; correctness never depends on it — the store's
// conditional write remains the only arbiter of who holds a lock.
package signal
