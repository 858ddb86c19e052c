package blobstore

import (
	"context"
	"encoding/json"
	"sync"

	"authscreen/domain/core"
	"authscreen/internal/errors"
)

// MemoryStore is an in-process ArtifactStore for tests and one-shot runs
// that should not leave checkpoint files behind. Payloads round-trip
// through JSON so the behavior matches the file store exactly.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]envelope
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]envelope)}
}

// Put stores the payload under key at version
func (s *MemoryStore) Put(_ context.Context, key string, version core.Hash, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.CheckpointFailed(key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = envelope{Version: version, Payload: raw}
	return nil
}

// Get loads the blob for key if present at the given version
func (s *MemoryStore) Get(_ context.Context, key string, version core.Hash, out interface{}) (bool, error) {
	s.mu.RLock()
	env, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok || !env.Version.Equals(version) {
		return false, nil
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return false, errors.Wrapf(err, "artifact %s: payload decode", key)
	}
	return true, nil
}

// Len reports the number of stored artifacts
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
