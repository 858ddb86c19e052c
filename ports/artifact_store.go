package ports

import (
	"context"

	"authscreen/domain/core"
)

// ArtifactStore is the keyed, versioned checkpoint store injected into
// each pipeline stage. Stages are pure functions of their inputs plus
// this store; expensive stages (full LOOCV, augmented fits) consult it
// before recomputing. The version is the model-spec fingerprint, so a
// changed item set or estimator formula invalidates every cached blob.
type ArtifactStore interface {
	// Put stores payload (JSON-serializable) under key at version.
	Put(ctx context.Context, key string, version core.Hash, payload interface{}) error

	// Get loads the blob stored under key at version into out. It returns
	// false (and no error) when the key is absent or stored at a different
	// version.
	Get(ctx context.Context, key string, version core.Hash, out interface{}) (bool, error)
}

// Checkpoint artifact keys. Each has a stable schema regardless of
// storage backend.
const (
	ArtifactFullModel = "full_model"
	ArtifactLOOCV     = "loocv_results"
	ArtifactInfluence = "influence_results"
	ArtifactNonAuth   = "nonauth_results"
	ArtifactATT       = "att_weights"
	ArtifactManifest  = "run_manifest"
)
