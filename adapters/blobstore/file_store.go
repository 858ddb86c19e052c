// Package blobstore provides ArtifactStore backends: a file-backed store
// for resumable batch runs and an in-memory store for tests.
package blobstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"authscreen/domain/core"
	"authscreen/internal/errors"
)

// envelope wraps a stored payload with the model-spec version it was
// computed under. A version mismatch reads as a cache miss, never as an
// error: the caller recomputes and overwrites.
type envelope struct {
	Version core.Hash       `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// FileStore keeps one JSON file per artifact key under a base directory
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "artifact dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Put writes the payload atomically: temp file in the same directory,
// then rename.
func (s *FileStore) Put(_ context.Context, key string, version core.Hash, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.CheckpointFailed(key, err)
	}
	data, err := json.Marshal(envelope{Version: version, Payload: raw})
	if err != nil {
		return errors.CheckpointFailed(key, err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return errors.CheckpointFailed(key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.CheckpointFailed(key, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.CheckpointFailed(key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return errors.CheckpointFailed(key, err)
	}
	return nil
}

// Get loads the blob for key if it exists and was stored at the given
// version.
func (s *FileStore) Get(_ context.Context, key string, version core.Hash, out interface{}) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "artifact %s", key)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, errors.Wrapf(err, "artifact %s: corrupt envelope", key)
	}
	if !env.Version.Equals(version) {
		return false, nil
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return false, errors.Wrapf(err, "artifact %s: payload decode", key)
	}
	return true, nil
}
