package store

import (
	"context"
	"sync"

	"github.com/lpoller/go-hasp/v1/lockrec"
)

type memoryDoc struct {
	body    []byte
	version lockrec.Version
}

// InMemory implements Store with process-local state. Useful in tests and in
// single-process schedulers; the sequence number is monotonic per store and
// the primary term is fixed at 1.
type InMemory struct {
	mu    sync.Mutex
	docs  map[string]memoryDoc
	seqNo int64
}

// NewInMemory returns an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[string]memoryDoc)}
}

// Read implements Store.Read.
func (m *InMemory) Read(ctx context.Context, id string) ([]byte, lockrec.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, lockrec.UnassignedVersion, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, lockrec.UnassignedVersion, ErrNotFound
	}
	body := make([]byte, len(doc.body))
	copy(body, doc.body)
	return body, doc.version, nil
}

// Write implements Store.Write.
func (m *InMemory) Write(ctx context.Context, id string, body []byte, expected lockrec.Version) (lockrec.Version, error) {
	if err := ctx.Err(); err != nil {
		return lockrec.UnassignedVersion, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.docs[id]
	switch {
	case !ok && expected.Assigned():
		return lockrec.UnassignedVersion, ErrVersionConflict
	case ok && !expected.Assigned():
		// create-only write over an existing document
		return lockrec.UnassignedVersion, ErrVersionConflict
	case ok && !cur.version.Equal(expected):
		return lockrec.UnassignedVersion, ErrVersionConflict
	}

	next := lockrec.NewVersion(m.seqNo, 1)
	m.seqNo++
	stored := make([]byte, len(body))
	copy(stored, body)
	m.docs[id] = memoryDoc{body: stored, version: next}
	return next, nil
}

// Delete implements Store.Delete.
func (m *InMemory) Delete(ctx context.Context, id string, expected lockrec.Version) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	if !cur.version.Equal(expected) {
		return ErrVersionConflict
	}
	delete(m.docs, id)
	return nil
}
