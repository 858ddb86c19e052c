package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authscreen/domain/core"
	"authscreen/ports"
)

var (
	_ ports.ArtifactStore = (*FileStore)(nil)
	_ ports.ArtifactStore = (*MemoryStore)(nil)
)

type payload struct {
	Name   string    `json:"name"`
	Scores []float64 `json:"scores"`
}

func stores(t *testing.T) map[string]ports.ArtifactStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]ports.ArtifactStore{
		"file":   fs,
		"memory": NewMemoryStore(),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	version := core.NewHash([]byte("spec-v1"))
	in := payload{Name: "loocv", Scores: []float64{-1.2, -0.4, 0.9}}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, ports.ArtifactLOOCV, version, in))

			var out payload
			ok, err := store.Get(ctx, ports.ArtifactLOOCV, version, &out)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, in, out)
		})
	}
}

func TestStore_MissingKeyIsNotAnError(t *testing.T) {
	ctx := context.Background()
	version := core.NewHash([]byte("spec-v1"))

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var out payload
			ok, err := store.Get(ctx, "absent", version, &out)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_VersionMismatchReadsAsMiss(t *testing.T) {
	ctx := context.Background()
	v1 := core.NewHash([]byte("spec-v1"))
	v2 := core.NewHash([]byte("spec-v2"))
	in := payload{Name: "full"}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, ports.ArtifactFullModel, v1, in))

			var out payload
			ok, err := store.Get(ctx, ports.ArtifactFullModel, v2, &out)
			require.NoError(t, err)
			assert.False(t, ok, "stale version must read as a miss, not as data")
		})
	}
}

func TestStore_PutOverwritesPreviousVersion(t *testing.T) {
	ctx := context.Background()
	v1 := core.NewHash([]byte("spec-v1"))
	v2 := core.NewHash([]byte("spec-v2"))

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, ports.ArtifactATT, v1, payload{Name: "old"}))
			require.NoError(t, store.Put(ctx, ports.ArtifactATT, v2, payload{Name: "new"}))

			var out payload
			ok, err := store.Get(ctx, ports.ArtifactATT, v2, &out)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "new", out.Name)

			ok, err = store.Get(ctx, ports.ArtifactATT, v1, &out)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}
