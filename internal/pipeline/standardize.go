package pipeline

import (
	"github.com/montanaflynn/stats"

	"authscreen/internal/errors"
)

// Reference is the authentic avg_logpost distribution used to
// standardize lz. It is built only over converged authentic participants,
// so lz has mean 0 and sd 1 over that reference population by
// construction.
type Reference struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
	N    int     `json:"n"`
}

// NewReference computes the standardization constants from the converged
// authentic avg_logpost scores.
func NewReference(scores []float64) (*Reference, error) {
	if len(scores) < 2 {
		return nil, errors.InvalidInput("standardization needs at least two converged authentic scores")
	}
	mean, err := stats.Mean(scores)
	if err != nil {
		return nil, errors.Wrap(err, "reference mean")
	}
	sd, err := stats.StandardDeviationSample(scores)
	if err != nil {
		return nil, errors.Wrap(err, "reference sd")
	}
	if sd == 0 {
		return nil, errors.InvalidInput("authentic avg_logpost distribution has zero variance")
	}
	return &Reference{Mean: mean, SD: sd, N: len(scores)}, nil
}

// Lz standardizes one avg_logpost against the authentic reference
func (r *Reference) Lz(avgLogPost float64) float64 {
	return (avgLogPost - r.Mean) / r.SD
}
