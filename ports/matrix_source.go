package ports

import (
	"context"

	"authscreen/domain/survey"
)

// MatrixSource supplies the validated participant×item response matrix
// from the external validation/transform collaborator.
type MatrixSource interface {
	// ReadMatrix loads item metadata and participant responses and returns
	// the validated matrix.
	ReadMatrix(ctx context.Context) (*survey.ResponseMatrix, error)
}
