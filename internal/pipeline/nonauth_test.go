package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authscreen/domain/screening"
	"authscreen/internal/irt"
)

func TestNonAuthScorer_ScoresAgainstFrozenModel(t *testing.T) {
	m := syntheticMatrix(t)
	est := irt.NewEstimator(irt.Settings{
		MaxIterations: 500,
		GradTolerance: 1e-5,
		Runtime:       time.Minute,
		RidgeTau:      0.01,
		RidgeBeta:     0.01,
		RidgeDelta:    0.01,
	})

	authIdx := m.AuthenticIndex()
	design, excluded := irt.NewDesign(m, authIdx, 0.01, 0.01, 0.01)
	full, err := est.Fit(design, irt.Init{}, excluded)
	require.NoError(t, err)

	nonAuthIdx := m.NonAuthenticIndex()
	results := NewNonAuthScorer(est, 2, nil).Run(m, full, nonAuthIdx)

	require.Len(t, results, len(nonAuthIdx))
	for pos, r := range results {
		assert.Equal(t, m.Participants[nonAuthIdx[pos]].ID, r.ParticipantID)
		if r.Converged {
			require.NotNil(t, r.AvgLogPost)
			assert.Less(t, *r.AvgLogPost, 0.0, "log-probabilities are negative")
			require.NotNil(t, r.Eta)
		}
	}
}

func TestNonAuthScorer_SparseTargetIsSkipped(t *testing.T) {
	m := consolidationMatrix(t)
	est := irt.NewEstimator(irt.Settings{MaxIterations: 100, GradTolerance: 1e-5})

	// minAnswered above anything in the small fixture.
	results := NewNonAuthScorer(est, 10, nil).Run(m, &irt.FitResult{
		Params: testItemParams(3),
	}, m.NonAuthenticIndex())

	require.Len(t, results, 1)
	assert.False(t, results[0].Converged)
	assert.Contains(t, results[0].Cause, "insufficient data")
	assert.Nil(t, results[0].AvgLogPost)
}

func testItemParams(n int) screening.ItemParams {
	return screening.ItemParams{
		Tau:   make([]float64, n),
		Beta1: make([]float64, n),
	}
}
