// Package weighting converts the continuous fit-quality score into
// inverse-propensity analytic weights via quintile stratification of the
// authentic avg_logpost distribution.
package weighting

import (
	"math"

	"github.com/montanaflynn/stats"

	"authscreen/domain/screening"
)

// Scored is one participant entering the weighting stage
type Scored struct {
	ParticipantID string
	AvgLogPost    float64
}

// Assignment is the per-participant outcome of stratification. Weight is
// populated only for non-authentic participants in non-vacuous bins.
type Assignment struct {
	Quintile int
	Weight   *float64
	Capped   bool
}

// Result holds the strata and the per-participant assignments
type Result struct {
	Strata      []screening.QuintileStratum
	Assignments map[string]Assignment
}

// Stratify partitions the authentic avg_logpost distribution into five
// empirical quantile bins, computes each bin's propensity
// n_auth / (n_auth + n_nonauth), and assigns every non-authentic member
// the inverse-odds weight propensity/(1-propensity). Under this binning
// the weights over non-authentic participants sum to the number of
// authentic participants in bins that contain at least one non-authentic
// member.
//
// A bin with no non-authentic members has an undefined (vacuous) weight;
// a propensity at 1 would make the weight infinite, so weights are capped
// at maxWeight and flagged instead of propagating Inf.
func Stratify(authentic, nonAuthentic []Scored, maxWeight float64) (*Result, error) {
	authScores := make([]float64, len(authentic))
	for i, s := range authentic {
		authScores[i] = s.AvgLogPost
	}

	bounds, err := quintileBoundaries(authScores)
	if err != nil {
		return nil, err
	}

	strata := make([]screening.QuintileStratum, 5)
	lower := math.Inf(-1)
	for q := 0; q < 5; q++ {
		upper := math.Inf(1)
		if q < 4 {
			upper = bounds[q]
		}
		strata[q] = screening.QuintileStratum{Quintile: q + 1, Lower: lower, Upper: upper}
		lower = upper
	}

	assignments := make(map[string]Assignment, len(authentic)+len(nonAuthentic))
	for _, s := range authentic {
		q := binOf(bounds, s.AvgLogPost)
		strata[q].NAuthentic++
		assignments[s.ParticipantID] = Assignment{Quintile: q + 1}
	}
	for _, s := range nonAuthentic {
		q := binOf(bounds, s.AvgLogPost)
		strata[q].NNonAuthentic++
		assignments[s.ParticipantID] = Assignment{Quintile: q + 1}
	}

	for q := range strata {
		st := &strata[q]
		total := st.NAuthentic + st.NNonAuthentic
		if total == 0 {
			continue
		}
		prop := float64(st.NAuthentic) / float64(total)
		st.Propensity = screening.Float(prop)
		if st.NNonAuthentic == 0 {
			// Vacuous: no member needs a weight.
			continue
		}
		w := prop / (1 - prop)
		if w > maxWeight || math.IsInf(w, 1) {
			w = maxWeight
			st.Capped = true
		}
		st.ATTWeight = screening.Float(w)
	}

	for _, s := range nonAuthentic {
		a := assignments[s.ParticipantID]
		st := strata[a.Quintile-1]
		a.Weight = st.ATTWeight
		a.Capped = st.Capped
		assignments[s.ParticipantID] = a
	}

	return &Result{Strata: strata, Assignments: assignments}, nil
}

// quintileBoundaries returns the 20/40/60/80 empirical percentiles of the
// authentic score distribution.
func quintileBoundaries(scores []float64) ([]float64, error) {
	bounds := make([]float64, 4)
	for i, p := range []float64{20, 40, 60, 80} {
		b, err := stats.Percentile(scores, p)
		if err != nil {
			return nil, err
		}
		bounds[i] = b
	}
	return bounds, nil
}

// binOf places a score within the authentic quintile boundaries. Scores
// below the first boundary land in bin 0 and above the last in bin 4, so
// non-authentic scores outside the authentic range still stratify.
func binOf(bounds []float64, score float64) int {
	for q, b := range bounds {
		if score <= b {
			return q
		}
	}
	return 4
}
