package weighting

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(prefix string, values []float64) []Scored {
	out := make([]Scored, len(values))
	for i, v := range values {
		out[i] = Scored{ParticipantID: fmt.Sprintf("%s%d", prefix, i), AvgLogPost: v}
	}
	return out
}

func TestStratify_WeightSumEqualsAuthenticCount(t *testing.T) {
	// 20 authentic scores spread evenly; one non-authentic per quintile so
	// every bin is populated and the stratified-odds identity holds.
	auth := make([]float64, 20)
	for i := range auth {
		auth[i] = -2.0 + 0.1*float64(i)
	}
	nonAuth := []float64{-1.95, -1.45, -1.05, -0.65, -0.15}

	res, err := Stratify(scored("a", auth), scored("n", nonAuth), 100)
	require.NoError(t, err)

	var sum float64
	for i := range nonAuth {
		a := res.Assignments[fmt.Sprintf("n%d", i)]
		require.NotNil(t, a.Weight, "non-authentic %d in a populated bin must be weighted", i)
		sum += *a.Weight
	}
	assert.InDelta(t, float64(len(auth)), sum, 1e-9,
		"sum of ATT weights must equal the authentic count")
}

func TestStratify_VacuousBinAssignsNoWeight(t *testing.T) {
	auth := make([]float64, 25)
	for i := range auth {
		auth[i] = float64(i)
	}
	// All non-authentic scores land in the lowest quintile.
	nonAuth := []float64{0.5, 1.0, 1.5}

	res, err := Stratify(scored("a", auth), scored("n", nonAuth), 100)
	require.NoError(t, err)

	for q := 1; q < 5; q++ {
		st := res.Strata[q]
		assert.Equal(t, 0, st.NNonAuthentic)
		assert.Nil(t, st.ATTWeight, "vacuous bin %d must carry no weight", q+1)
	}
	for i := range nonAuth {
		a := res.Assignments[fmt.Sprintf("n%d", i)]
		assert.Equal(t, 1, a.Quintile)
		require.NotNil(t, a.Weight)
		assert.False(t, math.IsInf(*a.Weight, 0), "no Inf may propagate to output")
	}
}

func TestStratify_PropensityNearOneIsCapped(t *testing.T) {
	// 500 authentic vs 1 non-authentic in the same bin: odds = 100, above
	// the cap of 10.
	auth := make([]float64, 500)
	for i := range auth {
		auth[i] = float64(i % 5) // five distinct values, one per quintile
	}
	nonAuth := []float64{0}

	res, err := Stratify(scored("a", auth), scored("n", nonAuth), 10)
	require.NoError(t, err)

	a := res.Assignments["n0"]
	require.NotNil(t, a.Weight)
	assert.Equal(t, 10.0, *a.Weight)
	assert.True(t, a.Capped)
}

func TestStratify_MidDistributionGetsModerateWeight(t *testing.T) {
	auth := make([]float64, 50)
	for i := range auth {
		auth[i] = float64(i)
	}
	// One non-authentic at the authentic mean profile, plus one in each
	// tail bin to make their weights comparable.
	nonAuth := scored("tail", []float64{1, 48})
	mid := Scored{ParticipantID: "mid", AvgLogPost: 24.5}
	nonAuth = append(nonAuth, mid)

	res, err := Stratify(scored("a", auth), nonAuth, 1000)
	require.NoError(t, err)

	a := res.Assignments["mid"]
	assert.Equal(t, 3, a.Quintile, "mean-profile participant lands mid-quintile")
	require.NotNil(t, a.Weight)
}

func TestStratify_AuthenticMembersGetQuintileOnly(t *testing.T) {
	auth := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	res, err := Stratify(scored("a", auth), nil, 100)
	require.NoError(t, err)

	for i := range auth {
		a := res.Assignments[fmt.Sprintf("a%d", i)]
		assert.Nil(t, a.Weight, "authentic participants carry no ATT weight")
		assert.GreaterOrEqual(t, a.Quintile, 1)
		assert.LessOrEqual(t, a.Quintile, 5)
	}
}

func TestStratify_EmptyAuthenticFails(t *testing.T) {
	_, err := Stratify(nil, scored("n", []float64{1}), 100)
	assert.Error(t, err)
}
