// Package lockrec defines the immutable lock record that job-scheduler
// workers coordinate through a shared, versioned document store. A record is
// a pure value: every transition returns a fresh copy, identity is derived
// deterministically from the scope and job (or from a content-addressed hash
// of an arbitrary resource payload), and the store's compare-and-swap token
// rides along opaquely. The package performs no I/O and reads no clocks.
package lockrec
