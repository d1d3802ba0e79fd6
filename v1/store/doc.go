// Package store defines the versioned document store a lock coordinator runs
// its compare-and-swap cycles against, with in-memory and Redis
// implementations. Every document carries an opaque version token; a
// conditional write succeeds only if the stored token still matches the one
// the caller read, which is the entire basis of the mutual-exclusion
// guarantee one layer up.
package store
