package store

import (
	"context"
	"errors"

	"github.com/lpoller/go-hasp/v1/lockrec"
)

var (
	// ErrNotFound indicates no document exists under the requested id.
	ErrNotFound = errors.New("store: document not found")

	// ErrVersionConflict indicates a conditional write or delete lost the
	// race for its version generation. The caller must re-read and retry.
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is a key-addressed document store with per-document CAS semantics.
// A write carrying lockrec.UnassignedVersion is create-only; any other
// expected version must match the stored one exactly. The store serializes
// conditional writes per document id; it promises nothing across ids.
type Store interface {
	// Read returns the document body stored under id along with the version
	// token to present on the next conditional write.
	Read(ctx context.Context, id string) ([]byte, lockrec.Version, error)

	// Write stores body under id if the stored version still equals expected,
	// returning the token of the new generation.
	Write(ctx context.Context, id string, body []byte, expected lockrec.Version) (lockrec.Version, error)

	// Delete removes the document if the stored version still equals expected.
	Delete(ctx context.Context, id string, expected lockrec.Version) error
}
