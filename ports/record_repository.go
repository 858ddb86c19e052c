package ports

import (
	"context"

	"authscreen/domain/screening"
)

// RecordRepository persists the final per-participant authenticity
// records for the external persistence layer. Implementations must keep
// nil diagnostic fields distinguishable from zero (SQL NULL, JSON null).
type RecordRepository interface {
	SaveRecords(ctx context.Context, runID string, records []screening.AuthenticityRecord) error
}
