package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	// ModelSpecHash fingerprints the model specification: the item set, the
	// participant roster, and the estimator settings. Checkpoint artifacts
	// are versioned by this hash, so any change to the specification
	// invalidates every cached stage.
	ModelSpecHash Hash
)

// NewModelSpecHash creates a model-spec fingerprint from raw data
func NewModelSpecHash(data []byte) ModelSpecHash { return ModelSpecHash(NewHash(data)) }

func (h ModelSpecHash) String() string { return Hash(h).String() }

// ComputeModelSpecHash builds a deterministic fingerprint from named
// components (item descriptors, participant ids, estimator settings).
// Components are sorted by key so map iteration order never leaks in.
func ComputeModelSpecHash(components map[string]interface{}) ModelSpecHash {
	keys := make([]string, 0, len(components))
	for k := range components {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("%v", components[key]))
	}

	return NewModelSpecHash([]byte(data.String()))
}
