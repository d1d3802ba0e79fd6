// Package coordinator arbitrates lock ownership between competing workers.
// Every acquisition funnels through the store's conditional write, so at most
// one coordinator holds a given lock per lease window even when many race for
// it. The signal bus only shortens the wait of blocked acquirers; it never
// decides ownership.
package coordinator
